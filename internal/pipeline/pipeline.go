// Package pipeline runs generation targets against one metadata reader.
//
// Every target is validated before any work starts and rendered in memory.
// Files are written only once all targets succeeded, so a failed run leaves
// the output untouched.
package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"winmdgen/internal/config"
	"winmdgen/internal/errors"
	"winmdgen/internal/generation"
	"winmdgen/internal/idl"
	"winmdgen/internal/logger"
	"winmdgen/internal/metadata"
	"winmdgen/internal/model"
	"winmdgen/internal/tree"
)

// Target is one backend invocation. Out is a directory for the Go backend
// and a file for the IDL backend.
type Target struct {
	Backend config.Backend
	Values  map[string]string
	Out     string
}

// Request describes a generation run.
type Request struct {
	Reader  metadata.Reader
	Filter  metadata.Filter
	Targets []Target
	// ForceClean empties non-empty Go output directories without asking.
	ForceClean bool
	// Confirm is asked before a non-empty output directory is emptied. A nil
	// Confirm refuses.
	Confirm func(dir string) bool
}

// Result lists the written files per target, in target order.
type Result struct {
	Written [][]string
}

type rendered struct {
	root  string
	files []generation.File
}

// Run validates, renders and writes every target of req.
func Run(ctx context.Context, req Request) (*Result, error) {
	if len(req.Targets) == 0 {
		return nil, errors.New("no targets")
	}

	options := make([]config.Options, len(req.Targets))
	for i, target := range req.Targets {
		parsed, err := config.Parse(target.Backend, target.Values)
		if err != nil {
			return nil, errors.Wrapf(err, "%s target", target.Backend)
		}
		options[i] = parsed
	}

	filter := req.Filter
	if filter == nil {
		filter = metadata.All
	}
	root, err := tree.Build(req.Reader, filter)
	if err != nil {
		return nil, err
	}

	outputs := make([]rendered, len(req.Targets))
	group, ctx := errgroup.WithContext(ctx)
	for i, target := range req.Targets {
		group.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			output, err := render(req.Reader, root, target, options[i])
			if err != nil {
				return errors.Wrapf(err, "%s target", target.Backend)
			}
			outputs[i] = output
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	for _, target := range req.Targets {
		if target.Backend != config.BackendGo {
			continue
		}
		if err := ClearDirectoryIfNotEmpty(target.Out, req.ForceClean, req.Confirm); err != nil {
			return nil, err
		}
	}

	// Every file is staged before any is renamed into place, so a failed
	// write leaves the outputs untouched.
	staged, err := stageAll(outputs)
	if err != nil {
		return nil, err
	}

	result := &Result{Written: make([][]string, len(req.Targets))}
	for i, target := range req.Targets {
		written, err := commit(staged[i])
		result.Written[i] = written
		if err != nil {
			discard(staged[i+1:])
			return result, err
		}
		logger.Logger.Infow("Target written",
			logger.FieldBackend, string(target.Backend),
			logger.FieldPath, target.Out,
			logger.FieldCount, len(written))
	}
	return result, nil
}

// render runs one backend over the shared tree with a model of its own.
func render(reader metadata.Reader, root *tree.Node, target Target, options config.Options) (rendered, error) {
	m := model.New(reader)
	switch target.Backend {
	case config.BackendGo:
		output, err := generation.NewGenerator(m, options).Generate(root)
		if err != nil {
			return rendered{}, err
		}
		return rendered{root: target.Out, files: output.Files}, nil
	case config.BackendIDL:
		content, err := idl.Generate(m, root)
		if err != nil {
			return rendered{}, err
		}
		return rendered{
			root:  filepath.Dir(target.Out),
			files: []generation.File{{Path: filepath.Base(target.Out), Content: content}},
		}, nil
	}
	return rendered{}, errors.Wrapf(errors.ErrInvalidConfig, "unknown backend %q", string(target.Backend))
}

// A stagedFile is a complete temporary copy waiting to replace path.
type stagedFile struct {
	path string
	tmp  string
}

func stageAll(outputs []rendered) ([][]stagedFile, error) {
	staged := make([][]stagedFile, len(outputs))
	for i, output := range outputs {
		for _, file := range output.files {
			path := filepath.Join(output.root, filepath.FromSlash(file.Path))
			tmp, err := stage(path, file.Content)
			if err != nil {
				discard(staged)
				return nil, err
			}
			staged[i] = append(staged[i], stagedFile{path: path, tmp: tmp})
		}
	}
	return staged, nil
}

func commit(files []stagedFile) ([]string, error) {
	written := make([]string, 0, len(files))
	for i, file := range files {
		if err := os.Rename(file.tmp, file.path); err != nil {
			discard([][]stagedFile{files[i:]})
			return written, errors.Wrapf(err, "renaming into %s", file.path)
		}
		logger.Logger.Debugw("File written", logger.FieldFile, file.path)
		written = append(written, file.path)
	}
	return written, nil
}

func discard(staged [][]stagedFile) {
	for _, files := range staged {
		for _, file := range files {
			os.Remove(file.tmp)
		}
	}
}

// WriteFileAtomic writes data next to path and renames it into place, so
// readers never observe a partially written file.
func WriteFileAtomic(path string, data []byte) error {
	tmp, err := stage(path, data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errors.Wrapf(err, "renaming into %s", path)
	}
	return nil
}

// stage writes data to a temporary file in the directory of path and
// returns its name.
func stage(path string, data []byte) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "creating %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", errors.Wrapf(err, "writing %s", path)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", errors.Wrapf(err, "writing %s", path)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", errors.Wrapf(err, "writing %s", path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", errors.Wrapf(err, "writing %s", path)
	}
	return tmp.Name(), nil
}

// ClearDirectoryIfNotEmpty creates path if needed and empties it when it
// already has entries. Unless force is set, confirm must agree first.
func ClearDirectoryIfNotEmpty(path string, force bool, confirm func(dir string) bool) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", path)
	}

	directory, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "opening %s", path)
	}
	defer directory.Close()

	_, err = directory.Readdirnames(1)
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "reading %s", path)
	}

	if !force && (confirm == nil || !confirm(path)) {
		return errors.WithHint(
			errors.Newf("output directory %s is not empty", path),
			"pass --force-clean to empty it without asking",
		)
	}

	logger.Logger.Infow("Cleaning output directory", logger.FieldPath, path)
	entries, err := os.ReadDir(path)
	if err != nil {
		return errors.Wrapf(err, "reading %s", path)
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(path, entry.Name())); err != nil {
			return errors.Wrapf(err, "cleaning %s", path)
		}
	}
	return nil
}

// PromptConfirm asks on out and reads the answer from in. Only "y" or "Y"
// agrees.
func PromptConfirm(in io.Reader, out io.Writer) func(dir string) bool {
	reader := bufio.NewReader(in)
	return func(dir string) bool {
		fmt.Fprintf(out, "Output directory %s is not empty. Continuation will remove all of its files. Proceed? [y/N] ", dir)
		response, _ := reader.ReadString('\n')
		return strings.EqualFold(strings.TrimSpace(response), "y")
	}
}
