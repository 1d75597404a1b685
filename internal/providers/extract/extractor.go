// Package extract is the boundary to the AI data-extraction provider. The
// pipeline treats it as a black box: page text and a column schema in,
// structured rows out.
package extract

import "context"

// Request carries the cleaned page text and the columns to extract.
type Request struct {
	PageURL      string   `json:"page_url"`
	PageText     string   `json:"page_text"`
	Columns      []string `json:"columns"`
	Instructions string   `json:"instructions,omitempty"`
}

// Row maps column name to extracted value.
type Row map[string]string

// Result is one extraction outcome.
type Result struct {
	Rows     []Row  `json:"rows"`
	Provider string `json:"provider"`
}

// Extractor runs AI extraction over page text.
type Extractor interface {
	Extract(ctx context.Context, req Request) (*Result, error)
}
