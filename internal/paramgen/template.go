// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package paramgen

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/spf13/afero"
	"github.com/ucl-sgnl/myriad-utils/internal/batcherr"
)

// ErrReadTemplate is returned when the template cannot be read.
var ErrReadTemplate = errors.New("failed to read parameter template")

// Template is an ordered list of template lines, each including its trailing newline
// unless it is the final line of a file without one.
type Template struct {
	Lines []string
}

// ParseTemplate reads a template, normalising CRLF and lone CR line endings to LF.
func ParseTemplate(r io.Reader) (*Template, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Join(batcherr.ErrConfiguration, ErrReadTemplate, err)
	}

	text := strings.ReplaceAll(string(raw), "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	t := &Template{}
	br := bufio.NewReader(strings.NewReader(text))

	for {
		line, err := br.ReadString('\n')
		if line != "" {
			t.Lines = append(t.Lines, line)
		}

		if err != nil {
			break
		}
	}

	return t, nil
}

// LoadTemplate reads and parses the template at path.
func LoadTemplate(fs afero.Fs, path string) (*Template, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.Join(batcherr.ErrConfiguration, ErrReadTemplate, err)
	}
	defer f.Close() //nolint:errcheck

	return ParseTemplate(f)
}
