package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollectorDeduplicatesBySource(t *testing.T) {
	c := NewCitationCollector()
	c.Add("s3://kb/processed/tb-guide.pdf", "excerpt one")
	c.Add("s3://kb/processed/tb-guide.pdf", "excerpt two")
	c.Add("s3://kb/processed/irrigation.pdf", "excerpt three")

	got := c.Snapshot()
	assert.Len(t, got, 2)
	assert.Equal(t, "tb-guide", got[0].Title)
	assert.Equal(t, "s3://kb/processed/tb-guide.pdf", got[0].Source)
	assert.Equal(t, "excerpt one", got[0].Excerpt)
	assert.Equal(t, "irrigation", got[1].Title)
}

func TestCollectorIgnoresEmptySource(t *testing.T) {
	c := NewCitationCollector()
	c.Add("", "orphan excerpt")
	assert.Empty(t, c.Snapshot())
}

func TestCollectorResetDropsPreviousRetrieval(t *testing.T) {
	c := NewCitationCollector()
	c.Add("gs://kb/processed/first.pdf", "old")
	c.Reset()
	c.Add("gs://kb/processed/second.pdf", "new")

	got := c.Snapshot()
	assert.Len(t, got, 1)
	assert.Equal(t, "second", got[0].Title)
}

func TestTitleFromSource(t *testing.T) {
	cases := map[string]string{
		"s3://bucket/processed/tb-treatment.pdf": "tb-treatment",
		"gs://bucket/processed/soil.notes.docx":  "soil.notes",
		"plainfile":                              "plainfile",
		"":                                       "Document",
	}
	for in, want := range cases {
		assert.Equal(t, want, TitleFromSource(in), "source %q", in)
	}
}

func TestTrackerLastQualifyingWriteWins(t *testing.T) {
	tr := NewToolChoiceTracker()
	assert.Equal(t, "", tr.Current())

	tr.Record("image_reader")
	assert.Equal(t, "", tr.Current(), "analysis tools must be ignored")

	tr.Record("tb_specialist")
	assert.Equal(t, "tb_specialist", tr.Current())

	tr.Record("not_a_tool")
	assert.Equal(t, "tb_specialist", tr.Current())

	tr.Record("agriculture_specialist")
	assert.Equal(t, "agriculture_specialist", tr.Current())
}

func TestSanitizeStripsResidualMarkup(t *testing.T) {
	in := "<TB>\nAction: call kb_search\n<thinking>route to tb</thinking>The answer.</thinking>"
	assert.Equal(t, "The answer.", Sanitize(in))
}
