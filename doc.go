// Package md2pdf converts Markdown documents to PDF using headless Chrome.
//
// # Quick Start
//
// Create a converter backed by a Store, then materialize an upload:
//
//	conv, err := md2pdf.NewConverter(md2pdf.WithStore(st))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conv.Close()
//
//	art, err := conv.Materialize(ctx, md2pdf.MaterializeRequest{
//	    SourceID: id,
//	    Title:    "Report",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile(art.Filename, art.PDF, 0644)
//
// Inline text goes through Preview, which uses a shorter timeout and a 1 MiB
// ceiling and marks the artifact for inline display:
//
//	art, err := conv.Preview(ctx, md2pdf.PreviewRequest{Text: "# Draft"})
//
// # Conversion Pipeline
//
// Every conversion walks the same states:
//
//  1. Received: options are validated
//  2. ContentResolved: the upload is read from the Store, or inline text is checked
//  3. Rendered: Markdown to a sanitized HTML fragment (goldmark, chroma, bluemonday)
//  4. Templated: the fragment is wrapped in the embedded document template
//  5. PDFGenerated: a fresh headless browser prints the document
//  6. Delivered: the Artifact gets its filename, MIME type and page count
//
// A failure returns a *ConversionError naming the stage, wrapping one of the
// kind sentinels (ErrInvalidInput, ErrNotFound, ErrRendererUnavailable,
// ErrRenderTimeout, ErrRenderProducedNoOutput, ErrStorageFailure). Use
// KindOf to classify it.
//
// # Rendering
//
// Each document gets its own browser process with a temporary profile. The
// process is killed and the profile removed before the call returns, on every
// path. An admission gate bounds concurrent processes:
//
//	conv, err := md2pdf.NewConverter(
//	    md2pdf.WithEngine(md2pdf.EngineChromedp),
//	    md2pdf.WithMaxConcurrentRenders(4),
//	    md2pdf.WithTimeout(time.Minute),
//	    md2pdf.WithNoSandbox(true),
//	)
//
// # Page Options
//
// Options select the page format (A3, A4, A5, Letter, Legal, Tabloid),
// margins as CSS lengths, landscape orientation, background printing and
// whether CSS @page sizes win over the format. The zero value is A4 with
// 1in margins.
package md2pdf
