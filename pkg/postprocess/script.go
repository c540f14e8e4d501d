package postprocess

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/glorpus-work/gdown/pkg/errors"
)

// ScriptModules are the Tengo standard library modules scripts may import.
var ScriptModules = []string{"fmt", "os", "text", "times", "json"}

// Script returns an action running a Tengo script. The script sees the
// variables path, dir and name for the downloaded file plus any extra vars.
// Setting err to a non-empty string or an error value fails the action.
func Script(source []byte, vars map[string]interface{}) Action {
	return func(ctx context.Context, path string) error {
		script := tengo.NewScript(source)
		script.SetImports(stdlib.GetModuleMap(ScriptModules...))

		builtin := map[string]interface{}{
			"path": path,
			"dir":  filepath.Dir(path),
			"name": filepath.Base(path),
		}
		for k, v := range vars {
			builtin[k] = v
		}
		for k, v := range builtin {
			if err := script.Add(k, v); err != nil {
				return fmt.Errorf("failed to add variable '%s' to script: %w", k, err)
			}
		}
		// Declared so scripts can assign it without defining it first.
		if err := script.Add("err", ""); err != nil {
			return fmt.Errorf("failed to add variable 'err' to script: %w", err)
		}

		compiled, err := script.RunContext(ctx)
		if err != nil {
			return errors.Wrapf(errors.ErrPostprocess, "script: %v", err)
		}

		errVar := compiled.Get("err")
		switch v := errVar.Value().(type) {
		case error:
			return fmt.Errorf("%w: %w", errors.ErrScriptResult, v)
		case string:
			if v != "" {
				return fmt.Errorf("%w: %s", errors.ErrScriptResult, v)
			}
		}
		return nil
	}
}

// ScriptFile reads a Tengo script from disk and returns its action.
func ScriptFile(file string, vars map[string]interface{}) (Action, error) {
	source, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrIO, "read script %s: %v", file, err)
	}
	return Script(source, vars), nil
}
