package report

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Info summarises a written report.
type Info struct {
	Pages       int
	ContentSize []int // decoded content stream bytes per page
}

// Empty returns the 1-based numbers of pages that have no drawing
// operators.
func (i Info) Empty() []int {
	var out []int
	for n, size := range i.ContentSize {
		if size == 0 {
			out = append(out, n+1)
		}
	}
	return out
}

// InspectFile opens a PDF and reports its page count and per-page content
// size.
func InspectFile(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()
	return Inspect(f)
}

// Inspect reads a PDF from rs.
func Inspect(rs io.ReadSeeker) (Info, error) {
	ctx, err := pdfcpu.Read(rs, model.NewDefaultConfiguration())
	if err != nil {
		return Info{}, fmt.Errorf("read pdf: %w", err)
	}
	if err := pdfcpu.OptimizeXRefTable(ctx); err != nil {
		return Info{}, fmt.Errorf("optimize xref: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return Info{}, fmt.Errorf("page count: %w", err)
	}

	info := Info{Pages: ctx.PageCount, ContentSize: make([]int, ctx.PageCount)}
	for i := 1; i <= ctx.PageCount; i++ {
		pageDict, _, _, err := ctx.PageDict(i, false)
		if err != nil {
			return Info{}, fmt.Errorf("page %d dict: %w", i, err)
		}
		obj, found := pageDict.Find("Contents")
		if !found {
			continue
		}
		data, err := contentStream(ctx, obj)
		if err != nil {
			return Info{}, fmt.Errorf("page %d content stream: %w", i, err)
		}
		info.ContentSize[i-1] = len(bytes.TrimSpace(data))
	}
	return info, nil
}

// Verify checks that the PDF at path has want pages, none of them blank.
func Verify(path string, want int) (Info, error) {
	info, err := InspectFile(path)
	if err != nil {
		return info, err
	}
	if info.Pages != want {
		return info, fmt.Errorf("%s: got %d pages, want %d", path, info.Pages, want)
	}
	if empty := info.Empty(); len(empty) > 0 {
		return info, fmt.Errorf("%s: blank pages %v", path, empty)
	}
	return info, nil
}

// contentStream dereferences and decompresses a Contents entry, which may
// be a single stream or an array of streams.
func contentStream(ctx *model.Context, obj types.Object) ([]byte, error) {
	obj, err := ctx.Dereference(obj)
	if err != nil {
		return nil, err
	}

	switch v := obj.(type) {
	case types.StreamDict:
		if err := v.Decode(); err != nil {
			return nil, fmt.Errorf("decode stream: %w", err)
		}
		return v.Content, nil
	case types.Array:
		var buf bytes.Buffer
		for _, item := range v {
			data, err := contentStream(ctx, item)
			if err != nil {
				return nil, err
			}
			buf.Write(data)
			buf.WriteByte('\n')
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unexpected Contents type: %T", obj)
	}
}
