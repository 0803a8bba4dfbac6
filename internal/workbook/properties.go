package workbook

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// Creator is written to the core properties of every stamped workbook.
const Creator = "sheetseal"

// Properties are the core document properties stamped on a workbook.
// Identifier carries the verified fingerprint so an audit can compare a
// workbook with its source without a ledger lookup.
type Properties struct {
	Title       string
	Subject     string
	Description string
	Identifier  string
	Created     time.Time
}

// Stamp writes p into the workbook's core properties.
func Stamp(f *excelize.File, p Properties) error {
	created := p.Created
	if created.IsZero() {
		created = time.Now()
	}
	stamp := created.UTC().Format(time.RFC3339)

	err := f.SetDocProps(&excelize.DocProperties{
		Creator:        Creator,
		LastModifiedBy: Creator,
		Title:          p.Title,
		Subject:        p.Subject,
		Description:    p.Description,
		Identifier:     p.Identifier,
		Keywords:       "sha512",
		Created:        stamp,
		Modified:       stamp,
	})
	if err != nil {
		return fmt.Errorf("set document properties: %w", err)
	}
	return nil
}

// Identifier returns the identifier core property, empty when unset.
func Identifier(f *excelize.File) (string, error) {
	props, err := f.GetDocProps()
	if err != nil {
		return "", fmt.Errorf("get document properties: %w", err)
	}
	return props.Identifier, nil
}
