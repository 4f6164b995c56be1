// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the small value types shared by every accessor: native
// types, the accessor flag set, and the missing-value sentinels.
package grib

import (
	"sort"
	"strings"
)

// NativeType is the type an accessor naturally decodes to.
type NativeType int

const (
	TypeUndefined NativeType = iota
	TypeLong
	TypeDouble
	TypeString
	TypeBytes
	TypeSection
	TypeLabel
	TypeMissing
)

var nativeTypeNames = [...]string{"undefined", "long", "double", "string", "bytes", "section", "label", "missing"}

func (t NativeType) String() string {
	if int(t) < len(nativeTypeNames) {
		return nativeTypeNames[t]
	}
	return "undefined"
}

// Missing-value sentinels, one per numeric native type.
const (
	MissingLong   int64   = 2147483647
	MissingDouble float64 = -1e+100
)

// Flags is the accessor flag bit set.
type Flags uint32

const (
	FlagReadOnly Flags = 1 << iota
	FlagDump
	FlagEditionSpecific
	FlagCanBeMissing
	FlagHidden
	FlagConstraint
	FlagBufrData
	FlagNoCopy
	FlagFunction
	FlagTransient
	FlagStringType
	FlagLongType
	FlagDoubleType
	FlagLowercase
	FlagCopyOK
	FlagCopyIfChanging
)

var flagNames = map[string]Flags{
	"read_only":        FlagReadOnly,
	"dump":             FlagDump,
	"edition_specific": FlagEditionSpecific,
	"can_be_missing":   FlagCanBeMissing,
	"hidden":           FlagHidden,
	"constraint":       FlagConstraint,
	"bufr_data":        FlagBufrData,
	"no_copy":          FlagNoCopy,
	"function":         FlagFunction,
	"transient":        FlagTransient,
	"string_type":      FlagStringType,
	"long_type":        FlagLongType,
	"double_type":      FlagDoubleType,
	"lowercase":        FlagLowercase,
	"copy_ok":          FlagCopyOK,
	"copy_if_changing": FlagCopyIfChanging,
}

// ParseFlag maps a definition-language flag name to its bit.
func ParseFlag(name string) (Flags, bool) {
	f, ok := flagNames[strings.ToLower(name)]
	return f, ok
}

// Has reports whether every bit of o is set in f.
func (f Flags) Has(o Flags) bool { return f&o == o }

func (f Flags) String() string {
	var names []string
	for n, bit := range flagNames {
		if f&bit != 0 {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}
