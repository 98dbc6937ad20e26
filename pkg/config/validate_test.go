package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validGroup() ModelGroup {
	return ModelGroup{
		Name:         "llama2-7b",
		NodeType:     "g5.xlarge",
		MinInstances: 1,
		MaxInstances: 2,
		Runtime:      Runtime{Image: "ghcr.io/ggerganov/llama.cpp:server"},
		Model: &Model{
			UseModelStore: false,
			HFRepoID:      "TheBloke/Llama-2-7B-Chat-GGUF",
			Files:         []string{"llama-2-7b-chat.Q4_0.gguf"},
		},
	}
}

func docWith(groups ...ModelGroup) *Document {
	return &Document{
		AWS: &AWSConfig{
			Cluster: Cluster{
				Name: "prod", Region: "us-east-1", Namespace: "default",
				NodeType: "c7a.xlarge", MinNodes: 1, MaxNodes: 3,
			},
			ModelGroups: groups,
		},
	}
}

func TestValidDocumentPasses(t *testing.T) {
	err := ValidateDocument(docWith(validGroup()))
	assert.NoError(t, err)
}

func TestNameMustBeDNS1123(t *testing.T) {
	cases := []string{"Llama2", "-llama", "llama-", "llama_2", strRepeat("a", 64)}
	for _, name := range cases {
		g := validGroup()
		g.Name = name
		err := ValidateDocument(docWith(g))
		assert.Error(t, err, name)
	}
}

func TestMaxMustBeAtLeastMin(t *testing.T) {
	g := validGroup()
	g.MinInstances = 2
	g.MaxInstances = 1
	err := ValidateDocument(docWith(g))
	assert.Error(t, err)
}

func TestMinInstancesMustBeAtLeastOne(t *testing.T) {
	g := validGroup()
	g.MinInstances = 0
	g.MaxInstances = 1
	err := ValidateDocument(docWith(g))
	assert.Error(t, err)
}

func TestModelFilesRequiredWhenModelSet(t *testing.T) {
	g := validGroup()
	g.Model.Files = nil
	err := ValidateDocument(docWith(g))
	assert.Error(t, err)
}

func TestModelRequiresSourceStrategy(t *testing.T) {
	g := validGroup()
	g.Model.HFRepoID = ""
	g.Model.UseModelStore = false
	err := ValidateDocument(docWith(g))
	require.Error(t, err)
}

func TestResourceRequestQuantityPatterns(t *testing.T) {
	g := validGroup()
	g.ResourceRequest = &ResourceRequest{CPU: "not-a-quantity", Memory: "4Gi"}
	err := ValidateDocument(docWith(g))
	assert.Error(t, err)

	g.ResourceRequest = &ResourceRequest{CPU: "500m", Memory: "4Gi"}
	err = ValidateDocument(docWith(g))
	assert.NoError(t, err)
}

func TestMixedModelGroupEnvelope(t *testing.T) {
	mg := MixedModelGroup{
		Name: "mix", NodeType: "g5.xlarge",
		BaseInstances: 2, MaxOnDemandInstances: 4,
		Spot:    SpotEnvelope{MinInstances: 0, MaxInstances: 10},
		Runtime: Runtime{Image: "ghcr.io/ggerganov/llama.cpp:server"},
	}
	doc := &Document{AWS: &AWSConfig{
		Cluster:          docWith(validGroup()).AWS.Cluster,
		MixedModelGroups: []MixedModelGroup{mg},
	}}
	assert.NoError(t, ValidateDocument(doc))

	mg.MaxOnDemandInstances = 1
	doc.AWS.MixedModelGroups = []MixedModelGroup{mg}
	assert.Error(t, ValidateDocument(doc))
}

func strRepeat(s string, n int) string {
	out := make([]byte, 0, n*len(s))
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}
