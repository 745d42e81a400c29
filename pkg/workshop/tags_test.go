package workshop

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitTags(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"single", "Scenario", []string{"Scenario"}},
		{"several", "Scenario,Multiplayer", []string{"Scenario", "Multiplayer"}},
		{"spaces kept", " Scenario , Multiplayer ", []string{" Scenario ", " Multiplayer "}},
		{"empty segments dropped", "a,,b,", []string{"a", "b"}},
		{"duplicates kept", "a,a", []string{"a", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitTags(tt.in)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTags(t *testing.T) {
	assert.Equal(t, []string{"Tag1", "Tag2"}, ParseTags("Tag1, Tag2,Tag1"))
	assert.Empty(t, ParseTags(" , "))
	assert.Empty(t, ParseTags(""))
}

func TestMergeTags(t *testing.T) {
	tests := []struct {
		name     string
		newTags  []string
		existing string
		want     []string
	}{
		{"empty existing", []string{"Tag1"}, "", []string{"Tag1"}},
		{"appends unseen", []string{"Tag1"}, "Scenario,Multiplayer", []string{"Tag1", "Scenario", "Multiplayer"}},
		{"skips present", []string{"Scenario", "Tag1"}, "Multiplayer,Scenario", []string{"Scenario", "Tag1", "Multiplayer"}},
		{"case sensitive", []string{"scenario"}, "Scenario", []string{"scenario", "Scenario"}},
		{"existing duplicates collapse", []string{"a"}, "b,b,a,c,b", []string{"a", "b", "c"}},
		{"new duplicates collapse", []string{"a", "a"}, "b", []string{"a", "b"}},
		{"no new tags", nil, "x,y", []string{"x", "y"}},
		{"both empty", nil, "", []string{}},
		{"existing segments untrimmed", []string{"b"}, "a, b", []string{"b", "a", " b"}},
		{"exact match only", []string{"Coop"}, "Coop ,Coop", []string{"Coop", "Coop "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MergeTags(tt.newTags, tt.existing))
		})
	}
}

func TestMergeTagsProperties(t *testing.T) {
	alphabet := []string{"Scenario", "Multiplayer", "Tag1", "Tag2", "Coop", "PvP", "Zeus", "Mod"}
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		perm := rng.Perm(len(alphabet))
		n := rng.Intn(len(alphabet))
		newTags := make([]string, 0, n)
		for _, idx := range perm[:n] {
			newTags = append(newTags, alphabet[idx])
		}
		existing := make([]string, rng.Intn(10))
		for j := range existing {
			existing[j] = alphabet[rng.Intn(len(alphabet))]
		}
		csv := strings.Join(existing, ",")

		merged := MergeTags(newTags, csv)

		assert.Equal(t, newTags, merged[:len(newTags)], "merged must start with the new tags")

		seen := map[string]bool{}
		for _, tag := range merged {
			assert.False(t, seen[tag], "duplicate %q in %v", tag, merged)
			seen[tag] = true
		}

		inNew := map[string]bool{}
		for _, tag := range newTags {
			inNew[tag] = true
		}
		extra := map[string]bool{}
		for _, tag := range existing {
			if !inNew[tag] {
				extra[tag] = true
			}
		}
		assert.Len(t, merged, len(newTags)+len(extra))
	}
}

func TestSimilarTags(t *testing.T) {
	pairs := SimilarTags([]string{"Senario", "multiplayer", "Tag1", "PvP"}, []string{"Scenario", "Multiplayer", "Tag1", "PvE"})
	assert.Equal(t, []TagPair{
		{New: "Senario", Existing: "Scenario"},
		{New: "multiplayer", Existing: "Multiplayer"},
	}, pairs)

	assert.Empty(t, SimilarTags([]string{"Coop"}, []string{"Zeus"}))
}
