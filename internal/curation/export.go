package curation

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/gingfrederik/docx"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/amityadav/marketwatch/internal/search"
)

// Columns is the header row shared by every export format.
var Columns = []string{"Type", "Date", "Title", "Source", "Link", "Keyword", "Folder"}

const dateLayout = time.RFC3339

const sheetName = "Curated"

var unsafeFilename = regexp.MustCompile(`[\\/:*?"<>|\s]+`)

// ExportFilename derives a download name from the folder, e.g. "curated_Recalls.csv".
func ExportFilename(folder, ext string) string {
	name := strings.Trim(unsafeFilename.ReplaceAllString(strings.TrimSpace(folder), "_"), "_.")
	if name == "" {
		name = "folder"
	}
	return fmt.Sprintf("curated_%s.%s", name, strings.TrimPrefix(ext, "."))
}

func row(r search.ResultRecord) []string {
	date := ""
	if !r.PublishedAt.IsZero() {
		date = r.PublishedAt.Format(dateLayout)
	}
	return []string{string(r.Type), date, r.Title, r.Source, r.Link, r.Keyword, r.Folder}
}

// ExportCSV writes records as comma-separated UTF-8 with a byte-order mark so
// spreadsheet tools detect the encoding.
func ExportCSV(w io.Writer, records []search.ResultRecord) error {
	tw := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
	cw := csv.NewWriter(tw)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(row(r)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return tw.Close()
}

// ImportCSV parses a file written by ExportCSV. A leading BOM is optional;
// columns are matched by header name so extra or reordered columns are fine.
func ImportCSV(r io.Reader) ([]search.ResultRecord, error) {
	cr := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := col["link"]; !ok {
		return nil, fmt.Errorf("missing Link column")
	}
	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	now := time.Now()
	out := []search.ResultRecord{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		link := field(rec, "link")
		if link == "" {
			continue
		}
		r := search.ResultRecord{
			Type:    search.RecordType(field(rec, "type")),
			Title:   field(rec, "title"),
			Source:  field(rec, "source"),
			Link:    link,
			Keyword: field(rec, "keyword"),
			Folder:  field(rec, "folder"),
		}
		if d := field(rec, "date"); d != "" {
			t, err := dateparse.ParseAny(d)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad date %q: %w", line, d, err)
			}
			r.PublishedAt = t
		}
		r, err = r.Normalize(now)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// ExportXLSX writes records as a single-sheet workbook.
func ExportXLSX(w io.Writer, records []search.ResultRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := row(r)
		line := make([]interface{}, len(values))
		for j, v := range values {
			line[j] = v
		}
		if err := f.SetSheetRow(sheetName, cell, &line); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	return f.Write(w)
}

// ExportDOCX writes a readable briefing document, one entry per record.
func ExportDOCX(w io.Writer, folder string, records []search.ResultRecord) error {
	f := docx.NewFile()

	title := f.AddParagraph().AddText("Market Intelligence: " + folder)
	title.Size(20)
	f.AddParagraph().AddText(fmt.Sprintf("%d records", len(records))).Size(10)
	f.AddParagraph()

	for _, r := range records {
		run := f.AddParagraph().AddText(r.Title)
		run.Size(14)

		meta := fmt.Sprintf("%s | %s", r.Source, r.Type)
		if !r.PublishedAt.IsZero() {
			meta += " | " + r.PublishedAt.Format("2006-01-02")
		}
		run = f.AddParagraph().AddText(meta)
		run.Size(10)
		run.Color("808080")

		run = f.AddParagraph().AddText(r.Link)
		run.Size(10)
		run.Color("0000FF")
		f.AddParagraph()
	}
	return f.Write(w)
}
