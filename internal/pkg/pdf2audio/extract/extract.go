// Package extract pulls plain text out of PDF files by running the xpdf or
// poppler pdftotext tool.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/mattn/go-shellwords"

	pdferrors "pdf2audio/internal/pkg/pdf2audio/errors"
	"pdf2audio/internal/pkg/pdf2audio/textclean"
)

const (
	toolName    = "pdftotext"
	xpdfHomeEnv = "XPDF_HOME"
)

type Request struct {
	Path string
	// FirstPage and LastPage bound the page range; zero leaves that side open.
	FirstPage       int
	LastPage        int
	RemoveFootnotes bool
}

type Extractor struct {
	binary    string
	extraArgs []string
}

// New resolves the pdftotext binary and parses extraArgs with shell quoting
// rules. See ResolveBinary for the lookup order.
func New(explicitPath, extraArgs string) (*Extractor, error) {
	bin, err := ResolveBinary(explicitPath)
	if err != nil {
		return nil, err
	}

	args, err := shellwords.Parse(extraArgs)
	if err != nil {
		return nil, pdferrors.Wrap(pdferrors.KindConfig, "extract", "invalid pdftotext arguments", err)
	}

	return &Extractor{binary: bin, extraArgs: args}, nil
}

func (x *Extractor) Binary() string {
	return x.binary
}

// ResolveBinary picks the pdftotext executable: the explicit path when given,
// then $XPDF_HOME/bin64, bin32 and bin, then the PATH.
func ResolveBinary(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", pdferrors.Wrap(pdferrors.KindConfig, "resolve-pdftotext",
				"pdftotext executable not found", err)
		}
		return explicitPath, nil
	}

	if home := os.Getenv(xpdfHomeEnv); home != "" {
		for _, dir := range []string{"bin64", "bin32", "bin"} {
			candidate := filepath.Join(home, dir, executableName())
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
	}

	path, err := exec.LookPath(toolName)
	if err != nil {
		return "", pdferrors.Wrap(pdferrors.KindExtraction, "resolve-pdftotext",
			"pdftotext not found; install xpdf-tools or poppler-utils, set XPDF_HOME or pass --pdftotext-path", err)
	}
	return path, nil
}

func executableName() string {
	if runtime.GOOS == "windows" {
		return toolName + ".exe"
	}
	return toolName
}

// Extract returns normalized text for the requested pages, with footnotes
// removed when asked.
func (x *Extractor) Extract(ctx context.Context, req Request) (string, error) {
	raw, err := x.ExtractRaw(ctx, req)
	if err != nil {
		return "", err
	}

	text := Clean(raw, req.RemoveFootnotes)
	if strings.TrimSpace(text) == "" {
		return "", pdferrors.Newf(pdferrors.KindExtraction, "extract", "no text left in %s after cleaning", req.Path)
	}
	return text, nil
}

// ExtractRaw returns the tool output exactly as produced.
func (x *Extractor) ExtractRaw(ctx context.Context, req Request) (string, error) {
	const op = "extract"

	if req.FirstPage < 0 || req.LastPage < 0 || (req.LastPage > 0 && req.FirstPage > req.LastPage) {
		return "", pdferrors.Newf(pdferrors.KindConfig, op, "invalid page range %d-%d", req.FirstPage, req.LastPage)
	}

	cmd := exec.CommandContext(ctx, x.binary, x.args(req)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := fmt.Sprintf("pdftotext failed on %s", req.Path)
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			msg += ": " + detail
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", pdferrors.Wrap(pdferrors.KindExtraction, op, msg, err)
		}
		return "", pdferrors.Wrap(pdferrors.KindExtraction, op, msg, fmt.Errorf("failed to run %s: %w", x.binary, err))
	}

	raw := stdout.String()
	if strings.TrimSpace(raw) == "" {
		return "", pdferrors.Newf(pdferrors.KindExtraction, op, "pdftotext produced no text for %s", req.Path)
	}
	return raw, nil
}

func (x *Extractor) args(req Request) []string {
	args := append([]string{}, x.extraArgs...)
	args = append(args, "-enc", "UTF-8")
	if req.FirstPage > 0 {
		args = append(args, "-f", strconv.Itoa(req.FirstPage))
	}
	if req.LastPage > 0 {
		args = append(args, "-l", strconv.Itoa(req.LastPage))
	}
	return append(args, req.Path, "-")
}

// Clean optionally strips footnotes from raw tool output and then normalizes
// its layout.
func Clean(raw string, removeFootnotes bool) string {
	if removeFootnotes {
		raw = textclean.RemoveFootnotes(raw)
	}
	return Normalize(raw)
}
