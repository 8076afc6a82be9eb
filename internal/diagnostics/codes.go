// Package diagnostics defines the stable taxonomy of contract diagnostics
// raised by the validator. Codes are part of the public contract: tooling and
// tests assert on them, so existing values must never be renumbered.
package diagnostics

import "fmt"

// Code identifies a kind of contract diagnostic.
type Code int

// Surface-level codes.
const (
	SurfaceNotAccessible           Code = 1
	HeaderNameContainsColon        Code = 2
	DeclaredHeaderMustHaveValue    Code = 3
	StatusPolicyOnEmbeddedSurface  Code = 4
	BasePathOnEmbeddedSurface      Code = 5
	BaseAddressNotAbsolute         Code = 6
	MissingPathPropertyForBasePath Code = 7
	MalformedPathTemplate          Code = 8
	DuplicateOperationName         Code = 9
	BindingNameEmpty               Code = 10
	InvalidSerializationMethod     Code = 11
)

// Property codes.
const (
	PropertyMustHaveOneBinding            Code = 20
	PropertyMustBeReadWrite               Code = 21
	RequesterPropertyMustBeReadOnly       Code = 22
	RequesterPropertyMustHaveNoBindings   Code = 23
	MultipleRequesterProperties           Code = 24
	HeaderPropertyWithValueMustBeNullable Code = 25
	BindingNotAllowedOnProperty           Code = 26
	DuplicatePathPropertyKey              Code = 27
	DuplicateRequestMetadataPropertyKey   Code = 28
	PathPropertyUnused                    Code = 29
)

// Operation and parameter codes.
const (
	OperationMustHaveRequestBinding               Code = 40
	OperationMustHaveOneRequestBinding            Code = 41
	InvalidHTTPMethod                             Code = 42
	MissingPathBindingForPlaceholder              Code = 43
	MissingPlaceholderForPathParameter            Code = 44
	DuplicatePathParameterKey                     Code = 45
	MultipleCancellationParameters                Code = 46
	CancellationParameterMustHaveNoBinding        Code = 47
	MultipleBodyParameters                        Code = 48
	ParameterMustNotBeByReference                 Code = 49
	ParameterMustHaveAtMostOneBinding             Code = 50
	HeaderParameterMustNotHaveValue               Code = 51
	QueryConflictsWithRawQuery                    Code = 52
	QueryMapParameterNotMapShaped                 Code = 53
	DuplicateRequestMetadataParameterKey          Code = 54
	RequestMetadataParameterDuplicatesPropertyKey Code = 55
	InvalidDisposeOperation                       Code = 56
	MultipleDisposeOperations                     Code = 57
)

var codeNames = map[Code]string{
	SurfaceNotAccessible:           "SurfaceNotAccessible",
	HeaderNameContainsColon:        "HeaderNameContainsColon",
	DeclaredHeaderMustHaveValue:    "DeclaredHeaderMustHaveValue",
	StatusPolicyOnEmbeddedSurface:  "StatusPolicyOnEmbeddedSurface",
	BasePathOnEmbeddedSurface:      "BasePathOnEmbeddedSurface",
	BaseAddressNotAbsolute:         "BaseAddressNotAbsolute",
	MissingPathPropertyForBasePath: "MissingPathPropertyForBasePath",
	MalformedPathTemplate:          "MalformedPathTemplate",
	DuplicateOperationName:         "DuplicateOperationName",
	BindingNameEmpty:               "BindingNameEmpty",
	InvalidSerializationMethod:     "InvalidSerializationMethod",

	PropertyMustHaveOneBinding:            "PropertyMustHaveOneBinding",
	PropertyMustBeReadWrite:               "PropertyMustBeReadWrite",
	RequesterPropertyMustBeReadOnly:       "RequesterPropertyMustBeReadOnly",
	RequesterPropertyMustHaveNoBindings:   "RequesterPropertyMustHaveNoBindings",
	MultipleRequesterProperties:           "MultipleRequesterProperties",
	HeaderPropertyWithValueMustBeNullable: "HeaderPropertyWithValueMustBeNullable",
	BindingNotAllowedOnProperty:           "BindingNotAllowedOnProperty",
	DuplicatePathPropertyKey:              "DuplicatePathPropertyKey",
	DuplicateRequestMetadataPropertyKey:   "DuplicateRequestMetadataPropertyKey",
	PathPropertyUnused:                    "PathPropertyUnused",

	OperationMustHaveRequestBinding:               "OperationMustHaveRequestBinding",
	OperationMustHaveOneRequestBinding:            "OperationMustHaveOneRequestBinding",
	InvalidHTTPMethod:                             "InvalidHTTPMethod",
	MissingPathBindingForPlaceholder:              "MissingPathBindingForPlaceholder",
	MissingPlaceholderForPathParameter:            "MissingPlaceholderForPathParameter",
	DuplicatePathParameterKey:                     "DuplicatePathParameterKey",
	MultipleCancellationParameters:                "MultipleCancellationParameters",
	CancellationParameterMustHaveNoBinding:        "CancellationParameterMustHaveNoBinding",
	MultipleBodyParameters:                        "MultipleBodyParameters",
	ParameterMustNotBeByReference:                 "ParameterMustNotBeByReference",
	ParameterMustHaveAtMostOneBinding:             "ParameterMustHaveAtMostOneBinding",
	HeaderParameterMustNotHaveValue:               "HeaderParameterMustNotHaveValue",
	QueryConflictsWithRawQuery:                    "QueryConflictsWithRawQuery",
	QueryMapParameterNotMapShaped:                 "QueryMapParameterNotMapShaped",
	DuplicateRequestMetadataParameterKey:          "DuplicateRequestMetadataParameterKey",
	RequestMetadataParameterDuplicatesPropertyKey: "RequestMetadataParameterDuplicatesPropertyKey",
	InvalidDisposeOperation:                       "InvalidDisposeOperation",
	MultipleDisposeOperations:                     "MultipleDisposeOperations",
}

// Name returns the symbolic name of the code.
func (c Code) Name() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	return "Unknown"
}

// String renders the stable identifier, e.g. RB0043.
func (c Code) String() string {
	return fmt.Sprintf("RB%04d", int(c))
}

// Known reports whether c belongs to the taxonomy.
func (c Code) Known() bool {
	_, ok := codeNames[c]
	return ok
}

// defaultSeverity lists codes that are advisory rather than errors.
var defaultSeverity = map[Code]Severity{
	PathPropertyUnused: Warning,
}

// DefaultSeverity returns the severity a code is raised with.
func (c Code) DefaultSeverity() Severity {
	if s, ok := defaultSeverity[c]; ok {
		return s
	}
	return Error
}

// MarshalText renders the stable identifier in documents.
func (c Code) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}
