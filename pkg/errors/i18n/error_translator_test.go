package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSwitchesCatalogue(t *testing.T) {
	t.Cleanup(func() { _ = Load(DefaultLocale) })

	require.NoError(t, Load("tr"))
	assert.Equal(t, "İndirme bulunamadı", T("task_not_found"))

	require.NoError(t, Load("en"))
	assert.Equal(t, "Download not found", T("task_not_found"))
}

func TestUnknownLocaleKeepsCatalogue(t *testing.T) {
	require.NoError(t, Load("en"))
	assert.Error(t, Load("xx"))
	assert.Equal(t, "Server error", T("internal_error"))
}

func TestMissingCodeFallsBack(t *testing.T) {
	assert.Equal(t, "no_such_code", T("no_such_code"))
}

func TestCataloguesCoverSameCodes(t *testing.T) {
	t.Cleanup(func() { _ = Load(DefaultLocale) })

	codes := func(locale string) map[string]bool {
		require.NoError(t, Load(locale))
		mu.RLock()
		defer mu.RUnlock()
		out := make(map[string]bool, len(messages))
		for k := range messages {
			out[k] = true
		}
		return out
	}
	assert.Equal(t, codes("en"), codes("tr"))
}
