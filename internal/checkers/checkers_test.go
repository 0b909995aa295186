package checkers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juststeveking/readycheck/internal/config"
	"github.com/juststeveking/readycheck/internal/probe"
)

func TestNew_RegistersEveryCategoryInOrder(t *testing.T) {
	driver := probe.NewDriver()
	defer driver.Close()

	set := New(driver, nil)
	assert.Equal(t, config.CategoryOrder, set.Registry.Categories())

	for _, name := range config.CategoryOrder {
		c, ok := set.Registry.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, name, c.Category())
	}

	_, ok := set.Performance.LastSummary()
	assert.False(t, ok)
}
