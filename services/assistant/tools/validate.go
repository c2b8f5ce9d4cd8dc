// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrValidationFailed indicates tool arguments failed schema constraints.
var ErrValidationFailed = errors.New("tool argument validation failed")

// toolValidate is the shared validator instance, configured in init()
// with the custom validators and json-tag field naming.
var toolValidate *validator.Validate

func init() {
	toolValidate = validator.New()

	// Report errors against json field names, not Go struct fields, so
	// validation messages match what the model actually sent.
	toolValidate.RegisterTagNameFunc(func(field reflect.StructField) string {
		tag := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if tag == "-" {
			return ""
		}
		return tag
	})

	_ = toolValidate.RegisterValidation("notblank", validateNotBlank)
	_ = toolValidate.RegisterValidation("rfc3339", validateRFC3339)
}

// validateNotBlank rejects strings that are empty after trimming.
func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// validateRFC3339 checks that a string parses as an RFC 3339 timestamp.
func validateRFC3339(fl validator.FieldLevel) bool {
	_, err := time.Parse(time.RFC3339, fl.Field().String())
	return err == nil
}

// ValidateArgs decodes and validates raw tool-call arguments against the
// named tool's schema.
//
// Description:
//
//	Decoding is strict: unknown fields are rejected, and every field-level
//	constraint from the argument struct's validate tags is enforced. The
//	returned value is one of the typed *Args structs, ready for Execute.
//
// Inputs:
//
//	name - Tool name; must be in the registry.
//	raw - Raw JSON arguments as issued by the model.
//
// Outputs:
//
//	any - The validated, typed arguments.
//	error - ErrValidationFailed (wrapped) with a message naming the
//	        offending field path and reason.
//
// Thread Safety: This function is safe for concurrent use.
func ValidateArgs(name string, raw json.RawMessage) (any, error) {
	var args any
	switch name {
	case ToolCreateClient:
		args = &CreateClientArgs{}
	case ToolConvertLead:
		args = &ConvertLeadArgs{}
	case ToolAddService:
		args = &AddServiceArgs{}
	case ToolSearchClient, ToolSearchLead:
		args = &SearchArgs{}
	default:
		return nil, fmt.Errorf("%w: unknown tool %q", ErrValidationFailed, name)
	}

	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(args); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidationFailed, decodeErrorMessage(err))
	}

	if err := toolValidate.Struct(args); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return nil, fmt.Errorf("%w: %s", ErrValidationFailed, formatFieldErrors(fieldErrs))
		}
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	return args, nil
}

// decodeErrorMessage rewrites json decode errors into field-oriented text.
func decodeErrorMessage(err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("%s: expected %s", typeErr.Field, typeErr.Type)
	}
	// DisallowUnknownFields yields `json: unknown field "x"`.
	return strings.TrimPrefix(err.Error(), "json: ")
}

// formatFieldErrors renders one "path: reason" clause per failed field.
func formatFieldErrors(fieldErrs validator.ValidationErrors) string {
	clauses := make([]string, 0, len(fieldErrs))
	for _, fieldErr := range fieldErrs {
		clauses = append(clauses, fmt.Sprintf("%s: %s",
			fieldPath(fieldErr), fieldReason(fieldErr)))
	}
	return strings.Join(clauses, "; ")
}

// fieldPath strips the struct type prefix from the error namespace,
// leaving the json path (e.g. "tags[1]").
func fieldPath(fieldErr validator.FieldError) string {
	namespace := fieldErr.Namespace()
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return fieldErr.Field()
}

// fieldReason maps a failed constraint to a human-readable reason.
func fieldReason(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return "is required"
	case "notblank":
		return "must be a non-empty string"
	case "email":
		return "must be a valid email address"
	case "rfc3339":
		return "must be an RFC 3339 timestamp"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fieldErr.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fieldErr.Param())
	default:
		return fmt.Sprintf("failed %s constraint", fieldErr.Tag())
	}
}
