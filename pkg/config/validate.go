package config

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/modelfleet/fleetctl/pkg/fleeterr"
)

var (
	modelGroupNamePattern = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)
	cpuQuantityPattern    = regexp.MustCompile(`^\d+m?$`)
	k8sQuantityPattern    = regexp.MustCompile(`^\d+(Mi|Gi)$`)
	hfRepoIDPattern       = regexp.MustCompile(`^[\w\-.]+/[\w\-.]+$`)
)

// NewValidator builds a validator.Validate with fleetctl's custom
// field-level rules registered, plus struct-level checks for the
// cross-field invariants validator/v10 tags cannot express alone.
func NewValidator() *validator.Validate {
	v := validator.New()

	_ = v.RegisterValidation("modelgroupname", func(fl validator.FieldLevel) bool {
		name := fl.Field().String()
		return len(name) <= 63 && modelGroupNamePattern.MatchString(name)
	})
	_ = v.RegisterValidation("cpuquantity", func(fl validator.FieldLevel) bool {
		return cpuQuantityPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("k8squantity", func(fl validator.FieldLevel) bool {
		return k8sQuantityPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("hfrepoid", func(fl validator.FieldLevel) bool {
		return hfRepoIDPattern.MatchString(fl.Field().String())
	})

	v.RegisterStructValidation(validateModel, Model{})

	return v
}

// validateModel enforces "model.files is non-empty when model is set"
// (spec.md §3's ModelGroup invariant).
func validateModel(sl validator.StructLevel) {
	m := sl.Current().Interface().(Model)
	if len(m.Files) == 0 {
		sl.ReportError(m.Files, "Files", "Files", "required_with_model", "")
	}
}

// ValidateDocument runs struct validation and the handful of
// cross-cutting checks that apply across the whole document rather than
// a single struct.
func ValidateDocument(doc *Document) error {
	v := NewValidator()
	if err := v.Struct(doc); err != nil {
		return fleeterr.New(fleeterr.ConfigInvalid, "config.ValidateDocument", err)
	}

	if doc.AWS == nil {
		return nil
	}
	for _, g := range doc.AWS.ModelGroups {
		if err := validateRuntimeCommandReference(g.Name, g.Model); err != nil {
			return err
		}
	}
	for _, g := range doc.AWS.MixedModelGroups {
		if err := validateRuntimeCommandReference(g.Name, g.Model); err != nil {
			return err
		}
	}
	return nil
}

// validateRuntimeCommandReference is a light sanity check: a model
// group with no model section and no embedded weights is a group the
// runtime planner can never resolve a location for. We don't fail here
// — the embedded-image case is legitimate and unverifiable statically —
// but a Model with HFRepoID and UseModelStore both unset, and Files
// present, is contradictory enough to flag early rather than waiting for
// NoModelResolvable deep in reconciliation.
func validateRuntimeCommandReference(name string, m *Model) error {
	if m == nil {
		return nil
	}
	if !m.UseModelStore && m.HFRepoID == "" {
		return fleeterr.New(fleeterr.ConfigInvalid, "config.ValidateDocument",
			fmt.Errorf("model group %q sets model.files but neither useModelStore nor hfRepoId", name)).
			WithGroup(name).WithField("model")
	}
	return nil
}
