package service

import (
	"testing"

	"github.com/haierkeys/holarchy-browser-service/internal/model"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		a, b string
		want model.LinkType
	}{
		{"Holarchy Browser", "Holarchy", model.LinkParent},
		{"holarchy", "Holarchy Browser", model.LinkParent},
		{"Supportable", "Widgets", model.LinkDepends},
		{"Widgets", "Core Engine", model.LinkDepends},
		{"Design Studio", "Widgets", model.LinkInspired},
		{"Widgets", "Avatar Lab", model.LinkInspired},
		{"Alpha", "Beta", model.LinkChild},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Classify(c.a, c.b), "Classify(%q, %q)", c.a, c.b)
	}
}

func TestClassify_DependsBeatsInspired(t *testing.T) {
	// Both vocabularies match; the dependency rule is checked first.
	assert.Equal(t, model.LinkDepends, Classify("core ideas", "x"))
}

func TestProperty_ClassifySubstringSymmetric(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("substring containment classifies the same both ways", prop.ForAll(
		func(a, b string) bool {
			return Classify(a, b) == Classify(b, a)
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
