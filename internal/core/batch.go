package core

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ConvertDir converts every *.csv file directly inside dir, in name order.
//
// A failing file does not stop the batch; its error is carried on the item.
// SheetName, Encoding and Password of tmpl apply to every file. The returned
// error is non-nil only when dir cannot be listed or ctx ends.
func (s *Service) ConvertDir(ctx context.Context, dir string, tmpl ConvertRequest) ([]BatchItem, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}

	var csvFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(strings.ToLower(entry.Name()), ".csv") {
			csvFiles = append(csvFiles, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(csvFiles)

	items := make([]BatchItem, 0, len(csvFiles))
	for _, path := range csvFiles {
		if err := ctx.Err(); err != nil {
			return items, err
		}

		res, err := s.convertFile(ctx, path, tmpl)
		if err != nil {
			slog.Warn("batch file failed", "file", path, "error", err)
		}
		items = append(items, BatchItem{Path: path, Result: res, Err: err})
	}

	slog.Info("batch completed", "dir", dir, "files", len(items))
	return items, nil
}

func (s *Service) convertFile(ctx context.Context, path string, tmpl ConvertRequest) (*ConvertResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	req := tmpl
	req.FileName = filepath.Base(path)
	req.Data = f
	return s.Convert(ctx, req)
}
