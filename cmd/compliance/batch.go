package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/kingrea/compliance-assistant/internal/backend"
	"github.com/kingrea/compliance-assistant/internal/config"
	"github.com/kingrea/compliance-assistant/internal/ingest"
	"github.com/kingrea/compliance-assistant/internal/logbook"
	"github.com/kingrea/compliance-assistant/internal/query"
	"github.com/kingrea/compliance-assistant/internal/session"
)

type batchOutput struct {
	BatchID  string           `json:"batch_id"`
	Uploaded []uploadedOutput `json:"uploaded"`
	Failed   []failureOutput  `json:"failed"`
	Error    string           `json:"error,omitempty"`
}

type uploadedOutput struct {
	Name       string  `json:"name"`
	SizeKB     float64 `json:"size_kb"`
	UploadedAt string  `json:"uploaded_at"`
	Pages      int     `json:"pages,omitempty"`
}

type failureOutput struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Reason string `json:"reason"`
}

func newSession(projectDir string) (*session.Controller, *logbook.Logbook, error) {
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		return nil, nil, err
	}
	lb, err := logbook.New(cfg.SessionLogPath())
	if err != nil {
		return nil, nil, err
	}
	client := backend.New(cfg.BackendOrigin())
	ctrl := session.NewController(
		ingest.NewController(client, ingest.WithLogbook(lb)),
		query.NewController(client, query.WithLogbook(lb)),
		session.WithLogbook(lb),
	)
	return ctrl, lb, nil
}

// handleUploadCommand runs `compliance upload`. It reports whether args named
// the command and, if so, the process exit code.
func handleUploadCommand(projectDir string, args []string) (int, bool) {
	if len(args) < 1 || args[0] != "upload" {
		return 0, false
	}
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "print the batch report as JSON")
	_ = fs.Parse(args[1:])
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: compliance upload [--json] FILE...")
		return 2, true
	}

	ctrl, lb, err := newSession(projectDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return 1, true
	}
	defer ctrl.Close()

	var candidates []ingest.Candidate
	var unreadable []failureOutput
	for _, path := range fs.Args() {
		candidate, err := ingest.CandidateFromPath(path)
		if err != nil {
			lb.Warn("Skipping %s: %v", path, err)
			unreadable = append(unreadable, failureOutput{Name: path, Kind: "unreadable", Reason: err.Error()})
			continue
		}
		candidates = append(candidates, candidate)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	report := ctrl.ProcessBatch(ctx, candidates)

	out := batchOutput{BatchID: report.BatchID, Failed: unreadable, Error: ctrl.Snapshot().UploadError}
	for _, doc := range report.Documents {
		out.Uploaded = append(out.Uploaded, uploadedOutput{
			Name:       doc.Name,
			SizeKB:     doc.SizeKiB,
			UploadedAt: doc.UploadedAtLabel,
			Pages:      doc.Pages,
		})
	}
	for _, f := range report.Failures {
		out.Failed = append(out.Failed, failureOutput{Name: f.Name, Kind: string(f.Kind), Reason: f.Message})
	}

	if *asJSON {
		writeJSON(os.Stdout, out)
	} else {
		printBatch(os.Stdout, out)
	}
	if len(out.Failed) > 0 {
		return 1, true
	}
	return 0, true
}

// handleAskCommand runs `compliance ask`, with the same contract as
// handleUploadCommand.
func handleAskCommand(projectDir string, args []string) (int, bool) {
	if len(args) < 1 || args[0] != "ask" {
		return 0, false
	}
	question := strings.Join(args[1:], " ")
	if !query.Ready(question) {
		fmt.Fprintln(os.Stderr, "Usage: compliance ask QUESTION...")
		return 2, true
	}
	ctrl, _, err := newSession(projectDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return 1, true
	}
	defer ctrl.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	answer, _ := ctrl.SubmitQuestion(ctx, question)
	fmt.Println(answer)
	if answer == query.ErrorAnswer {
		return 1, true
	}
	return 0, true
}

func printBatch(w io.Writer, out batchOutput) {
	for _, doc := range out.Uploaded {
		line := fmt.Sprintf("✓ %s  %.2fKB • %s", doc.Name, doc.SizeKB, doc.UploadedAt)
		if doc.Pages > 0 {
			line += fmt.Sprintf(" • %d page(s)", doc.Pages)
		}
		fmt.Fprintln(w, line)
	}
	for _, f := range out.Failed {
		fmt.Fprintf(w, "✗ %s  %s\n", f.Name, f.Reason)
	}
	fmt.Fprintf(w, "%d uploaded, %d failed (batch %s)\n", len(out.Uploaded), len(out.Failed), out.BatchID)
}

func writeJSON(w io.Writer, payload any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
