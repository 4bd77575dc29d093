// Copyright (c) 2024, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package params

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// DefaultFile is the default parameter file name.
const DefaultFile = "parameters.txt"

// Labels of the parameter file lines.
const (
	LabelSize       = "Net Size"
	LabelJ          = "J"
	LabelB          = "B"
	LabelIterations = "Number of iterations"
	LabelRepeat     = "Number repeats"
)

// Write writes p in the parameter file format, one "Label: value" line
// per parameter.
func Write(w io.Writer, p Params) error {
	_, err := fmt.Fprintf(w, "%s: %d\n%s: %s\n%s: %s\n%s: %d\n%s: %d\n",
		LabelSize, p.Size,
		LabelJ, strconv.FormatFloat(p.J, 'g', -1, 64),
		LabelB, strconv.FormatFloat(p.B, 'g', -1, 64),
		LabelIterations, p.Iterations,
		LabelRepeat, p.Repeat)
	return err
}

// Read reads parameters in the parameter file format, starting from base
// for any parameter that is not present. Lines may be in any order, and
// lines with unknown labels are ignored. A known label with a value that
// cannot be parsed is an error.
func Read(r io.Reader, base Params) (Params, error) {
	p := base
	sc := bufio.NewScanner(r)
	ln := 0
	for sc.Scan() {
		ln++
		label, value, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		label = strings.TrimSpace(label)
		value = strings.TrimSpace(value)
		var err error
		switch label {
		case LabelSize:
			p.Size, err = strconv.Atoi(value)
		case LabelJ:
			p.J, err = strconv.ParseFloat(value, 64)
		case LabelB:
			p.B, err = strconv.ParseFloat(value, 64)
		case LabelIterations:
			p.Iterations, err = strconv.ParseInt(value, 10, 64)
		case LabelRepeat:
			p.Repeat, err = strconv.ParseInt(value, 10, 64)
		}
		if err != nil {
			return base, fmt.Errorf("params: line %d: %q: %w", ln, label, err)
		}
	}
	if err := sc.Err(); err != nil {
		return base, fmt.Errorf("params: read: %w", err)
	}
	return p, nil
}

// Save overwrites the file at path with p.
func Save(path string, p Params) error {
	var b bytes.Buffer
	if err := Write(&b, p); err != nil {
		return err
	}
	if err := os.WriteFile(path, b.Bytes(), 0o644); err != nil {
		return fmt.Errorf("params: save: %w", err)
	}
	return nil
}

// Load reads the parameter file at path, starting from base.
func Load(path string, base Params) (Params, error) {
	f, err := os.Open(path)
	if err != nil {
		return base, fmt.Errorf("params: load: %w", err)
	}
	defer f.Close()
	return Read(f, base)
}
