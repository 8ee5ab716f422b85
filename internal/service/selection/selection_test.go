package selection

import (
	"context"
	"fmt"
	"io"
	"testing"

	"site_auditor/internal/domain/models"
	"site_auditor/internal/pkg/errors"
	"site_auditor/internal/pkg/judgment"
	"site_auditor/internal/pkg/judgment/judgmenttest"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

func twelvePaths() *models.DiscoveryResult {
	paths := []string{`/`}
	for i := 1; i < 12; i++ {
		paths = append(paths, fmt.Sprintf(`/page-%d`, i))
	}
	return &models.DiscoveryResult{RootURL: `https://example.com/`, Paths: paths}
}

func TestSelectEnforcesLimitsAndMembership(t *testing.T) {
	svc := judgmenttest.NewStub().On(judgment.TaskPageSelection, judgmenttest.Reply(`{
		"visual": ["/", "/page-1", "/page-2", "/page-3", "/page-4", "/page-5", "/page-6"],
		"content": ["https://example.com/page-7/", "/does-not-exist", "/page-8"],
		"seo": ["/", "/page-1", "/page-1"],
		"social": ["page-9"],
		"rationale": "homepage plus key service pages"
	}`))
	disc := twelvePaths()

	sel, err := NewSelector(testLogger(), svc).Select(context.Background(), disc, models.BusinessContext{CompanyName: `Acme`, Industry: `plumbing`}, 5)
	require.NoError(t, err)

	assert.Equal(t, models.SelectionAI, sel.Strategy)
	assert.Equal(t, []string{`/`, `/page-1`, `/page-2`, `/page-3`, `/page-4`}, sel.Visual)
	assert.Equal(t, []string{`/page-7`, `/page-8`}, sel.Content)
	assert.Equal(t, []string{`/`, `/page-1`}, sel.SEO)
	assert.Equal(t, []string{`/page-9`}, sel.Social)

	assert.LessOrEqual(t, len(sel.UniquePages), 20)
	assert.GreaterOrEqual(t, len(sel.UniquePages), 1)
	for _, p := range sel.UniquePages {
		assert.True(t, disc.Contains(p), p)
	}
	assert.Len(t, sel.UniquePages, 8)

	prompt := svc.Requests(judgment.TaskPageSelection)[0].Prompt
	assert.Contains(t, prompt, `Industry: plumbing`)
	assert.Contains(t, prompt, `- /page-11`)
}

func TestSelectFallsBackToHomepage(t *testing.T) {
	tests := []struct {
		name    string
		handler judgmenttest.Handler
	}{
		{`service unavailable`, judgmenttest.Fail(errors.JudgmentServiceUnavailable)},
		{`timeout`, judgmenttest.Fail(errors.JudgmentTimeout)},
		{`malformed`, judgmenttest.Reply(`visual: /, content: /about`)},
		{`unknown pages only`, judgmenttest.Reply(`{"visual": ["/nope"], "content": [], "seo": [], "social": []}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := judgmenttest.NewStub().On(judgment.TaskPageSelection, tt.handler)

			sel, err := NewSelector(testLogger(), svc).Select(context.Background(), twelvePaths(), models.BusinessContext{}, 5)

			require.Error(t, err)
			assert.True(t, errors.IsKind(err, errors.KindSelection))
			assert.Equal(t, models.SelectionHomepageFallback, sel.Strategy)
			assert.Equal(t, []string{`/`}, sel.UniquePages)
			for _, m := range []models.Module{models.ModuleVisual, models.ModuleContent, models.ModuleSEO, models.ModuleSocial} {
				assert.Equal(t, []string{`/`}, sel.PagesFor(m))
			}
		})
	}
}

func TestSelectWithoutRootUsesFirstCandidate(t *testing.T) {
	disc := &models.DiscoveryResult{Paths: []string{`/blog`, `/about`}}
	sel, err := NewSelector(testLogger(), judgmenttest.NewStub()).Select(context.Background(), disc, models.BusinessContext{}, 3)

	require.Error(t, err)
	assert.Equal(t, []string{`/blog`}, sel.UniquePages)
}

func TestSelectWithoutCandidatesIsFatal(t *testing.T) {
	_, err := NewSelector(testLogger(), judgmenttest.NewStub()).Select(context.Background(), &models.DiscoveryResult{}, models.BusinessContext{}, 5)

	var pe *errors.PipelineError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, errors.ReasonNoCandidates, pe.Error())
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, `/`, canonical(`https://example.com`))
	assert.Equal(t, `/about`, canonical(`about/`))
	assert.Equal(t, `/a`, canonical(` /a?x=1 `))
}
