package runmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// ErrNotMarkdown is returned for output files without a .md extension.
var ErrNotMarkdown = errors.New("output file must have .md extension")

// Renderer renders one input document to a file or to Stdout.
type Renderer struct {
	InputFile  string // Absolute input path
	OutputFile string // Absolute output path, empty for Stdout

	Lame      bool // Omit the attribution footer
	Placement Placement
	Logger    zerolog.Logger
	Stdout    io.Writer

	inputName string // Input path as given, shown in the footer
	pathTo    string // Input path relative to the output directory
}

// NewRenderer validates the paths and returns a Renderer. The output file,
// if any, must end in .md.
func NewRenderer(inputFile, outputFile string) (*Renderer, error) {
	absIn, err := filepath.Abs(inputFile)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve input path: %w", err)
	}

	r := &Renderer{
		InputFile: absIn,
		Logger:    zerolog.Nop(),
		Stdout:    os.Stdout,
		inputName: inputFile,
	}

	if outputFile != "" {
		if !strings.HasSuffix(outputFile, ".md") {
			return nil, fmt.Errorf("%s: %w", outputFile, ErrNotMarkdown)
		}
		absOut, err := filepath.Abs(outputFile)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve output path: %w", err)
		}
		rel, err := filepath.Rel(filepath.Dir(absOut), absIn)
		if err != nil {
			rel = absIn
		}
		r.OutputFile = absOut
		r.pathTo = filepath.ToSlash(rel)
	}

	return r, nil
}

// Render reads the input, runs its blocks and writes the result in a single
// write. It returns the rendered text.
func (r *Renderer) Render(ctx context.Context) (string, error) {
	source, err := os.ReadFile(r.InputFile)
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	lines, err := Assemble(ctx, string(source), Options{
		Filename:  r.InputFile,
		Placement: r.Placement,
		Logger:    r.Logger,
	})
	if err != nil {
		return "", err
	}

	lines = append(lines, r.footer()...)
	text := strings.Join(lines, "\n")

	if r.OutputFile == "" {
		if _, err := io.WriteString(r.Stdout, text); err != nil {
			return "", fmt.Errorf("failed to write output: %w", err)
		}
		return text, nil
	}

	if err := writeFileAtomic(r.OutputFile, []byte(text)); err != nil {
		return "", fmt.Errorf("failed to write output: %w", err)
	}
	return text, nil
}

func (r *Renderer) footer() []string {
	if r.Lame {
		return nil
	}
	if r.OutputFile != "" {
		return []string{"----", fmt.Sprintf("Page rendered from [%s](%s) by %s", r.inputName, r.pathTo, Link)}
	}
	return []string{"----", "Page rendered by " + Link}
}

// writeFileAtomic replaces path with data via a temp file in the same
// directory, so readers never see a partial page.
func writeFileAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
