package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tendant/simple-workshop/pkg/workshop"
	"github.com/tendant/simple-workshop/pkg/workshop/manifest"
	"github.com/tendant/simple-workshop/pkg/workshop/metrics"
)

type uploadFlags struct {
	app          string
	item         uint64
	contentPath  string
	previewPath  string
	title        string
	description  string
	tags         string
	legacy       bool
	changeNotes  string
	manifestPath string
	timeout      time.Duration
	metricsOut   string
}

func (f *uploadFlags) request() workshop.Request {
	return workshop.Request{
		ItemID: workshop.ItemID(f.item),
		Legacy: f.legacy,
		Content: workshop.ContentSpec{
			ContentPath: f.contentPath,
			PreviewPath: f.previewPath,
			Title:       f.title,
			Description: f.description,
			Tags:        workshop.ParseTags(f.tags),
			ChangeNotes: f.changeNotes,
		},
	}
}

func newUploadCommand(c *cli) *cobra.Command {
	var f uploadFlags

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload a file (legacy) or folder to the workshop",
		Long: `Upload publishes a new item from a single file (--legacy) or updates an
existing item, either from a single file (--legacy) or from a directory.

Missing app and item information is asked for interactively.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runUpload(cmd, &f)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.app, "app", "a", "", "application id or name")
	flags.Uint64VarP(&f.item, "item", "i", 0, "id of the item to update")
	flags.StringVarP(&f.contentPath, "content-path", "p", "", "content file (legacy) or directory")
	flags.StringVarP(&f.previewPath, "preview-path", "q", "", "preview image")
	flags.StringVarP(&f.title, "title", "t", "", "item title")
	flags.StringVarP(&f.description, "description", "d", "", "item description")
	flags.StringVar(&f.tags, "tags", "", `comma separated tags, e.g. "Scenario,Multiplayer,Singleplayer"`)
	flags.BoolVar(&f.legacy, "legacy", false, "single file based upload")
	flags.StringVar(&f.changeNotes, "change-notes", "", "change notes for directory updates")
	flags.StringVar(&f.manifestPath, "manifest", "", "item manifest, flags override its values")
	flags.DurationVar(&f.timeout, "timeout", 0, "bound on each platform call (0 waits forever)")
	flags.StringVar(&f.metricsOut, "metrics-out", "", "write Prometheus metrics to this file when done")

	return cmd
}

func (c *cli) runUpload(cmd *cobra.Command, f *uploadFlags) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	p := newPrompter(cmd.InOrStdin(), out)

	app, err := c.resolveApp(f.app)
	if err != nil {
		return err
	}

	req := f.request()
	var m *manifest.Manifest
	if f.manifestPath != "" {
		m, err = manifest.Load(f.manifestPath)
		if err != nil {
			return err
		}
		m.Overlay(req)
		if err := m.Validate(); err != nil {
			return err
		}
		req = m.Request()
		if app == 0 {
			app = m.AppID
		}
	}

	if app == 0 {
		if app, err = promptApp(p, out); err != nil {
			return err
		}
	}
	if m == nil && req.ItemID == 0 && req.Content.Title == "" && req.Content.Description == "" && len(req.Content.Tags) == 0 {
		if err := promptItem(p, out, &req); err != nil {
			return err
		}
	}

	if cmd.Flags().Changed("timeout") {
		c.cfg.OperationTimeout = f.timeout
	}

	var prom *metrics.Prom
	var sink workshop.Metrics = workshop.NoopMetrics{}
	if f.metricsOut != "" {
		prom = metrics.NewProm("workshop")
		sink = prom
	}

	em, closeFn, err := c.openEmulator(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := writeAppIDMarker(".", app, c.logger); err != nil {
		return err
	}

	if req.ItemID != 0 {
		c.logger.Info("uploading item", "item", req.ItemID, "app", app, "variant", req.Variant())
	} else {
		c.logger.Info("publishing item", "title", req.Content.Title, "app", app)
	}
	res, err := workshop.Upload(ctx, em, app, req, c.cfg.SessionOptions(c.logger, sink)...)
	if prom != nil {
		if werr := prom.WriteToTextfile(f.metricsOut); werr != nil {
			c.logger.Error("failed to write metrics", "path", f.metricsOut, "error", werr)
		}
	}
	if err != nil {
		return err
	}
	c.logger.Info("upload finished", "item", res.ItemID)

	printUploadResult(out, res)

	if m != nil && res.Created {
		m.AppID = app
		m.ItemID = res.ItemID
		if err := m.Save(f.manifestPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "Manifest %s updated with item id %s\n", f.manifestPath, res.ItemID)
	}
	return nil
}

func promptApp(p *prompter, out io.Writer) (workshop.AppID, error) {
	for _, name := range knownAppNames() {
		fmt.Fprintf(out, "%s - %s\n", name, workshop.KnownApps[name])
	}
	answer, err := p.ask("Please specify AppId: ")
	if err != nil {
		return 0, err
	}
	return parseApp(answer)
}

// promptItem asks for an item id or, failing that, the metadata of a new item.
func promptItem(p *prompter, out io.Writer, req *workshop.Request) error {
	fmt.Fprintln(out, "No item id or item attributes provided!")
	answer, err := p.ask("Please specify an item id or title: ")
	if err != nil {
		return err
	}
	if id, err := workshop.ParseItemID(answer); err == nil {
		req.ItemID = id
		return nil
	}

	fmt.Fprintln(out, "Text detected, assuming it is a title...")
	req.Content.Title = answer
	if req.Content.Description, err = p.ask("Please specify a description: "); err != nil {
		return err
	}
	tags, err := p.ask("Please specify the tags as a comma-separated list: ")
	if err != nil {
		return err
	}
	req.Content.Tags = workshop.ParseTags(tags)
	return nil
}

func printUploadResult(out io.Writer, res workshop.PublishResult) {
	fmt.Fprintln(out, "Upload finished")
	printField(out, "Item ID", res.ItemID)
	printField(out, "Variant", res.Variant)
	if res.Created {
		printField(out, "Created", "yes")
	}
	for _, st := range res.Staged {
		printField(out, "Staged", fmt.Sprintf("%s (%s)", st.LocalPath, humanize.Bytes(uint64(st.Size))))
	}
	if res.NeedsLegalAgreement {
		printWarning(out, "Accept the workshop legal agreement before the item becomes visible.")
	}
}
