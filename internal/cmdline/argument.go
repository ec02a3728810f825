// SPDX-FileCopyrightText: 2024 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmdline

import (
	"slices"
	"strings"
)

// Value is the value of an option [Argument]. It is either a single string or
// multiple strings joined by a separator.
type Value struct {
	parts     []string
	separator string
}

// Single returns a [Value] consisting of a single string.
func Single(value string) Value {
	return Value{parts: []string{value}}
}

// Multiple returns a [Value] consisting of multiple strings that are joined by
// the given separator. With an empty separator, each part becomes a separate
// command line word.
func Multiple(separator string, parts ...string) Value {
	return Value{
		parts:     slices.Clone(parts),
		separator: separator,
	}
}

// Words returns the command line words of the value.
func (v Value) Words() []string {
	if v.separator == "" {
		return slices.Clone(v.parts)
	}

	return []string{strings.Join(v.parts, v.separator)}
}

// String implements [fmt.Stringer].
func (v Value) String() string {
	sep := v.separator
	if sep == "" {
		sep = " "
	}

	return strings.Join(v.parts, sep)
}

// Argument is a command line argument. It is either a bare flag or a named
// option with a [Value].
//
// Option names might be marked to be unique in a [Command].
type Argument struct {
	name          string
	value         Value
	option        bool
	nonUniqueName bool
}

// Flag returns a new bare flag [Argument]. The name is used as is, so it can
// be a dash prefixed flag like "-snapshot" as well as an operand like
// "root@localhost".
func Flag(name string) Argument {
	return Argument{
		name:          name,
		nonUniqueName: true,
	}
}

// UniqueOpt returns a new option [Argument] with the given name that is marked
// as unique and so can be used in a [Command] only once.
func UniqueOpt(name string, value Value) Argument {
	return Argument{
		name:   name,
		value:  value,
		option: true,
	}
}

// RepeatableOpt returns a new option [Argument] with the given name that is
// not unique and so can be used in a [Command] multiple times.
func RepeatableOpt(name string, value Value) Argument {
	return Argument{
		name:          name,
		value:         value,
		option:        true,
		nonUniqueName: true,
	}
}

// Name returns the name of the [Argument].
func (a Argument) Name() string {
	return a.name
}

// Value returns the value of the [Argument]. It is empty for flags.
func (a Argument) Value() Value {
	return a.value
}

// IsOption returns if the [Argument] is a named option.
func (a Argument) IsOption() bool {
	return a.option
}

// UniqueName returns if the name of the [Argument] must be unique in a
// [Command].
func (a Argument) UniqueName() bool {
	return !a.nonUniqueName
}

// String implements [fmt.Stringer].
func (a Argument) String() string {
	if !a.option {
		return a.name
	}

	return a.name + " " + a.value.String()
}

// Words returns the command line words of the [Argument].
func (a Argument) Words() []string {
	if !a.option {
		return []string{a.name}
	}

	return append([]string{a.name}, a.value.Words()...)
}

// collides returns true if both [Argument]s are options of the same name and
// at least one of them is marked unique.
func (a Argument) collides(other Argument) bool {
	if !a.option || !other.option || a.name != other.name {
		return false
	}

	return !a.nonUniqueName || !other.nonUniqueName
}
