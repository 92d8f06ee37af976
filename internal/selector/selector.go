package selector

import (
	"context"
	"errors"
	"fmt"

	"github.com/g960059/sadb/internal/model"
)

var ErrSelection = errors.New("device selection failed")

// AllOption is appended to the menu when a command may fan out.
const AllOption = "ALL"

const prompt = "Select a device:"

// Chooser asks the user to pick one of options and returns its zero-based index.
type Chooser interface {
	Choose(ctx context.Context, prompt string, options []string) (int, error)
}

// ChooserFunc adapts a function to Chooser.
type ChooserFunc func(ctx context.Context, prompt string, options []string) (int, error)

func (f ChooserFunc) Choose(ctx context.Context, prompt string, options []string) (int, error) {
	return f(ctx, prompt, options)
}

// Select resolves devices into a Selection. It returns a nil Selection and no
// error when devices is empty. A single device is selected without prompting.
func Select(ctx context.Context, devices []string, allowAll bool, chooser Chooser) (model.Selection, error) {
	switch len(devices) {
	case 0:
		return nil, nil
	case 1:
		return model.Single{Device: devices[0]}, nil
	}
	if chooser == nil {
		return nil, fmt.Errorf("%w: no chooser available", ErrSelection)
	}

	options := append([]string(nil), devices...)
	if allowAll {
		options = append(options, AllOption)
	}
	idx, err := chooser.Choose(ctx, prompt, options)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSelection, err)
	}
	if allowAll && idx == len(devices) {
		return model.All{List: append([]string(nil), devices...)}, nil
	}
	if idx < 0 || idx >= len(devices) {
		return nil, fmt.Errorf("%w: index %d out of range", ErrSelection, idx)
	}
	return model.Single{Device: devices[idx]}, nil
}
