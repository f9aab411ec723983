// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package dataset

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/juju/errors"
)

// Table is a raw rating table: identifier lists in first-appearance order
// and the known scores.
type Table struct {
	Users   []string
	Items   []string
	Ratings map[Pair]float64

	seenUsers map[string]struct{}
	seenItems map[string]struct{}
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		Ratings:   make(map[Pair]float64),
		seenUsers: make(map[string]struct{}),
		seenItems: make(map[string]struct{}),
	}
}

// Add records a rating. Unseen identifiers are appended to the lists.
func (t *Table) Add(user, item string, score float64) {
	t.AddUser(user)
	t.AddItem(item)
	t.Ratings[Pair{User: user, Item: item}] = score
}

// AddUser registers a user without ratings.
func (t *Table) AddUser(user string) {
	if _, ok := t.seenUsers[user]; !ok {
		t.seenUsers[user] = struct{}{}
		t.Users = append(t.Users, user)
	}
}

// AddItem registers an item without ratings.
func (t *Table) AddItem(item string) {
	if _, ok := t.seenItems[item]; !ok {
		t.seenItems[item] = struct{}{}
		t.Items = append(t.Items, item)
	}
}

// Build creates the catalog and rating store of the table.
func (t *Table) Build() (*RatingStore, error) {
	catalog, err := NewCatalog(t.Users, t.Items)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return NewRatingStore(catalog, t.Ratings)
}

// LoadCSV reads "user<sep>item<sep>score" lines. Identifiers must not contain
// the composite key separator. When header is set the first
// line is skipped. A repeated (user, item) cell keeps the last score.
func LoadCSV(r io.Reader, sep string, header bool) (*Table, error) {
	table := NewTable()
	var parseErr error
	sc := bufio.NewScanner(r)
	err := ReadLines(sc, sep, func(lineNumber int, fields []string) bool {
		if header && lineNumber == 0 {
			return true
		}
		if len(fields) == 1 && strings.TrimSpace(fields[0]) == "" {
			return true
		}
		if len(fields) < 3 {
			parseErr = errors.NotValidf("line %d has %d fields", lineNumber+1, len(fields))
			return false
		}
		user, item := strings.TrimSpace(fields[0]), strings.TrimSpace(fields[1])
		for _, id := range []string{user, item} {
			if err := ValidateIdentifier(id); err != nil {
				parseErr = errors.Annotatef(err, "line %d", lineNumber+1)
				return false
			}
		}
		score, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if err != nil {
			parseErr = errors.NewNotValid(err, "score at line "+strconv.Itoa(lineNumber+1))
			return false
		}
		table.Add(user, item, score)
		return true
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	if parseErr != nil {
		return nil, parseErr
	}
	return table, nil
}

// Escape text for csv.
func Escape(text string) string {
	if !strings.ContainsAny(text, ",\"\n\r") {
		return text
	}
	builder := strings.Builder{}
	builder.WriteRune('"')
	for _, c := range text {
		if c == '"' {
			builder.WriteString("\"\"")
		} else {
			builder.WriteRune(c)
		}
	}
	builder.WriteRune('"')
	return builder.String()
}

// ReadLines parse fields of each line for csv file.
func ReadLines(sc *bufio.Scanner, sep string, handler func(int, []string) bool) error {
	lineCount := 0               // line number of current position
	fields := make([]string, 0)  // fields for current line
	builder := strings.Builder{} // string builder for current field
	quoted := false              // whether current position in quote
	for sc.Scan() {
		line := []rune(sc.Text())
		if quoted {
			builder.WriteString("\r\n")
		}
		for i := 0; i < len(line); i++ {
			if string(line[i]) == sep && !quoted {
				fields = append(fields, builder.String())
				builder.Reset()
			} else if line[i] == '"' {
				if quoted {
					if i+1 >= len(line) || line[i+1] != '"' {
						quoted = false
					} else {
						i++
						builder.WriteRune('"')
					}
				} else {
					quoted = true
				}
			} else {
				builder.WriteRune(line[i])
			}
		}
		if !quoted {
			fields = append(fields, builder.String())
			builder.Reset()
			if !handler(lineCount, fields) {
				return nil
			}
			fields = []string{}
		}
		lineCount++
	}
	return sc.Err()
}
