package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/csheth/mdtranslate/internal/api"
	"github.com/csheth/mdtranslate/internal/document"
)

const requestTimeout = 30 * time.Second

type HistoryCmd struct {
	List   HistoryListCmd   `cmd:"" default:"1" help:"List saved documents (default)"`
	Show   HistoryShowCmd   `cmd:"" help:"Print a saved document"`
	Delete HistoryDeleteCmd `cmd:"" help:"Delete a saved document"`
}

type HistoryListCmd struct{}

func (c *HistoryListCmd) Run(a *app) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	docs, err := a.client.ListDocuments(ctx)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		_, err := fmt.Fprintln(a.out, "no saved documents")
		return err
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tTRANSLATED\tUPDATED")
	for _, doc := range docs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", doc.ID, doc.Title, doc.Status, doc.IsTranslated, stamp(doc.UpdatedAt))
	}
	return tw.Flush()
}

type HistoryShowCmd struct {
	ID   string `arg:"" help:"Document id"`
	Kind string `help:"What to print: original, translated or bilingual" default:"translated" enum:"original,translated,bilingual"`
}

func (c *HistoryShowCmd) Run(a *app) error {
	kind, err := document.ParseKind(c.Kind)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	doc, err := a.client.GetDocument(ctx, c.ID)
	if err != nil {
		return err
	}
	content, err := document.Render(kind, doc.SourceContent, doc.TranslatedContent)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, content)
	return err
}

type HistoryDeleteCmd struct {
	ID string `arg:"" help:"Document id"`
}

func (c *HistoryDeleteCmd) Run(a *app) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if err := a.client.DeleteDocument(ctx, c.ID); err != nil {
		return err
	}
	_, err := fmt.Fprintf(a.out, "deleted %s\n", c.ID)
	return err
}

func stamp(t api.Timestamp) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
