// Package sqlscript parses migration SQL files into statements.
//
// Besides plain SQL, a file may carry annotations in line comments:
//
//	-- +message Authentication tables removal completed successfully!
//	-- +policy continue
//
//	-- +step Dropped users table
//	-- +onerror Error dropping users table
//	DROP TABLE IF EXISTS users;
//
// +message and +policy apply to the whole file; +step and +onerror apply to the
// statement that follows them. Other line comments are dropped.
package sqlscript

import (
	"errors"
	"fmt"
	"strings"
)

// Policy decides what happens after a statement fails.
type Policy string

const (
	// Continue runs every statement; each failure is isolated.
	Continue Policy = "continue"
	// Stop aborts at the first failure and discards the work done so far.
	Stop Policy = "stop"
)

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case Continue:
		return Continue, nil
	case Stop:
		return Stop, nil
	default:
		return "", fmt.Errorf("unknown policy %q (expected continue or stop)", s)
	}
}

// Statement is one executable SQL statement.
type Statement struct {
	SQL     string
	Step    string
	OnError string
}

// Script is a parsed migration file.
type Script struct {
	Message    string
	Policy     Policy // empty when the file does not set one
	Statements []Statement
}

// ErrDanglingAnnotation is returned when +step or +onerror is not followed by a statement.
var ErrDanglingAnnotation = errors.New("annotation is not followed by a statement")

// Parse splits src into statements and collects annotations.
func Parse(src string) (*Script, error) {
	p := &parser{src: src, script: &Script{}}
	if err := p.run(); err != nil {
		return nil, err
	}
	return p.script, nil
}

type parser struct {
	src    string
	pos    int
	line   int
	script *Script

	buf     strings.Builder
	step    string
	onError string
	pending bool // an annotation waits for its statement
}

func (p *parser) run() error {
	p.line = 1
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == '\n':
			p.line++
			p.buf.WriteByte(c)
			p.pos++
		case c == '-' && p.peek(1) == '-':
			if err := p.lineComment(); err != nil {
				return err
			}
		case c == '/' && p.peek(1) == '*':
			if err := p.blockComment(); err != nil {
				return err
			}
		case c == '\'' || c == '"' || c == '`':
			if err := p.quoted(c); err != nil {
				return err
			}
		case c == '$':
			if err := p.dollarQuoted(); err != nil {
				return err
			}
		case c == ';':
			p.pos++
			p.flush()
		default:
			p.buf.WriteByte(c)
			p.pos++
		}
	}
	p.flush()
	if p.pending {
		return fmt.Errorf("line %d: %w", p.line, ErrDanglingAnnotation)
	}
	return nil
}

func (p *parser) peek(offset int) byte {
	if p.pos+offset < len(p.src) {
		return p.src[p.pos+offset]
	}
	return 0
}

func (p *parser) flush() {
	sql := strings.TrimSpace(p.buf.String())
	p.buf.Reset()
	if sql == "" {
		return
	}
	p.script.Statements = append(p.script.Statements, Statement{
		SQL:     sql,
		Step:    p.step,
		OnError: p.onError,
	})
	p.step, p.onError, p.pending = "", "", false
}

func (p *parser) lineComment() error {
	end := strings.IndexByte(p.src[p.pos:], '\n')
	var text string
	if end < 0 {
		text = p.src[p.pos+2:]
		p.pos = len(p.src)
	} else {
		text = p.src[p.pos+2 : p.pos+end]
		p.pos += end // the newline itself is handled by the main loop
	}

	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "+") {
		return nil
	}
	return p.annotation(text[1:])
}

func (p *parser) annotation(text string) error {
	key, value, _ := strings.Cut(text, " ")
	value = strings.TrimSpace(value)

	switch key {
	case "message":
		p.script.Message = value
	case "policy":
		policy, err := ParsePolicy(value)
		if err != nil {
			return fmt.Errorf("line %d: %w", p.line, err)
		}
		p.script.Policy = policy
	case "step":
		p.step = value
		p.pending = true
	case "onerror":
		p.onError = value
		p.pending = true
	default:
		return fmt.Errorf("line %d: unknown annotation +%s", p.line, key)
	}
	return nil
}

func (p *parser) blockComment() error {
	end := strings.Index(p.src[p.pos+2:], "*/")
	if end < 0 {
		return fmt.Errorf("line %d: unterminated block comment", p.line)
	}
	chunk := p.src[p.pos : p.pos+2+end+2]
	p.line += strings.Count(chunk, "\n")
	p.buf.WriteString(chunk)
	p.pos += len(chunk)
	return nil
}

// quoted copies a quoted string or identifier; a doubled quote is an escaped quote.
func (p *parser) quoted(q byte) error {
	start := p.pos
	p.pos++
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		p.pos++
		if c == q {
			if p.pos < len(p.src) && p.src[p.pos] == q {
				p.pos++
				continue
			}
			chunk := p.src[start:p.pos]
			p.line += strings.Count(chunk, "\n")
			p.buf.WriteString(chunk)
			return nil
		}
	}
	return fmt.Errorf("line %d: unterminated quoted text", p.line)
}

// dollarQuoted handles PostgreSQL $tag$ ... $tag$ bodies. A lone '$' (e.g. a $1
// placeholder) is copied as is.
func (p *parser) dollarQuoted() error {
	rest := p.src[p.pos+1:]
	closeIdx := strings.IndexByte(rest, '$')
	if closeIdx < 0 || !isTag(rest[:closeIdx]) {
		p.buf.WriteByte('$')
		p.pos++
		return nil
	}

	tag := "$" + rest[:closeIdx] + "$"
	bodyStart := p.pos + len(tag)
	end := strings.Index(p.src[bodyStart:], tag)
	if end < 0 {
		return fmt.Errorf("line %d: unterminated dollar-quoted text", p.line)
	}
	chunk := p.src[p.pos : bodyStart+end+len(tag)]
	p.line += strings.Count(chunk, "\n")
	p.buf.WriteString(chunk)
	p.pos += len(chunk)
	return nil
}

func isTag(s string) bool {
	for i, r := range s {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (i > 0 && r >= '0' && r <= '9') {
			continue
		}
		return false
	}
	return true
}
