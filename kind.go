// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package pbr

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MapKind identifies which derived PBR property a Raster represents.
type MapKind uint8

const (
	// Height is the perceptual grayscale of the base color.
	Height MapKind = iota

	// Normal is a tangent-space normal derived from Height.
	Normal

	// AO is the ambient occlusion map, the inverse of Height.
	AO

	// Metallic approximates metalness as desaturated brightness.
	Metallic

	// Roughness is the local contrast against the 8 neighbors.
	Roughness

	// Specular is the base color scaled by its reflectivity.
	Specular

	// Glossiness is the inverse of Roughness.
	Glossiness

	// Diffuse is the BT.709 luminance of a specular-workflow base.
	Diffuse

	mapKindCount
)

var mapKindNames = [mapKindCount]string{
	Height:     "height",
	Normal:     "normal",
	AO:         "ambient_occlusion",
	Metallic:   "metallic",
	Roughness:  "roughness",
	Specular:   "specular",
	Glossiness: "glossiness",
	Diffuse:    "diffuse",
}

// mapKindLabels holds the human-readable labels, built once at init
// because a cases.Caser must not be shared between goroutines.
var mapKindLabels [mapKindCount]string

func init() {
	title := cases.Title(language.English)
	for k, name := range mapKindNames {
		mapKindLabels[k] = title.String(strings.ReplaceAll(name, "_", " "))
	}
}

// AllMapKinds returns every map kind in declaration order.
func AllMapKinds() []MapKind {
	kinds := make([]MapKind, 0, mapKindCount)
	for k := MapKind(0); k < mapKindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// Valid reports whether k names a known map kind.
func (k MapKind) Valid() bool { return k < mapKindCount }

// String returns the identifier of the kind, e.g. "ambient_occlusion".
func (k MapKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("MapKind(%d)", uint8(k))
	}
	return mapKindNames[k]
}

// Label returns the title-cased display name, e.g. "Ambient Occlusion".
func (k MapKind) Label() string {
	if !k.Valid() {
		return k.String()
	}
	return mapKindLabels[k]
}

// FileSuffix returns the label with spaces removed, used when exporting
// maps as "<name>_<suffix>.png".
func (k MapKind) FileSuffix() string {
	return strings.ReplaceAll(k.Label(), " ", "")
}

// ParseMapKind parses a kind identifier or label, case-insensitively.
// "ao" is accepted as a short form of ambient occlusion.
func ParseMapKind(s string) (MapKind, error) {
	norm := strings.ToLower(strings.NewReplacer(" ", "_", "-", "_").Replace(strings.TrimSpace(s)))
	if norm == "ao" {
		return AO, nil
	}
	for k, name := range mapKindNames {
		if name == norm {
			return MapKind(k), nil
		}
	}
	return 0, fmt.Errorf("pbr: unknown map kind %q", s)
}

// Workflow selects which pair of variable maps is generated alongside the
// always-present Height, Normal and AO maps.
type Workflow uint8

const (
	// WorkflowBase is the metallic/roughness workflow.
	WorkflowBase Workflow = iota

	// WorkflowDiffuse is the specular/glossiness workflow.
	WorkflowDiffuse
)

// commonKinds are required by every workflow.
var commonKinds = []MapKind{Height, Normal, AO}

// Required returns the map kinds a workflow presents, in display order.
func (w Workflow) Required() []MapKind {
	kinds := append([]MapKind(nil), commonKinds...)
	switch w {
	case WorkflowDiffuse:
		return append(kinds, Specular, Glossiness)
	default:
		return append(kinds, Metallic, Roughness)
	}
}

// String returns "base" or "diffuse".
func (w Workflow) String() string {
	switch w {
	case WorkflowBase:
		return "base"
	case WorkflowDiffuse:
		return "diffuse"
	default:
		return fmt.Sprintf("Workflow(%d)", uint8(w))
	}
}

// ParseWorkflow parses a workflow name. "metallic" and "specular" are
// accepted as aliases of "base" and "diffuse".
func ParseWorkflow(s string) (Workflow, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "base", "metallic", "mr":
		return WorkflowBase, nil
	case "diffuse", "specular", "sg":
		return WorkflowDiffuse, nil
	default:
		return 0, fmt.Errorf("pbr: unknown workflow %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (w Workflow) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (w *Workflow) UnmarshalText(text []byte) error {
	v, err := ParseWorkflow(string(text))
	if err != nil {
		return err
	}
	*w = v
	return nil
}
