package dna

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/hcore/internal/ir"
)

// ErrNoFiles is returned by LoadDir for a directory without .cue files.
var ErrNoFiles = errors.New("no CUE files found")

// LoadDir builds the CUE files in dir as one instance and compiles its
// "dna" struct.
func LoadDir(dir string) (*ir.Dna, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("dna directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("dna directory: not a directory: %s", dir)
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFiles, dir)
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("load %s: no CUE instances", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return Compile(value.LookupPath(cue.ParsePath("dna")))
}

// FindCUEFiles returns every .cue file under dir.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
