package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchema(t *testing.T) {
	t.Parallel()
	s := NewSchema()
	require.NotNil(t, s)
	assert.Empty(t, s.Options())
	assert.Empty(t, s.Sections())
}

func TestSchemaRegister(t *testing.T) {
	t.Parallel()
	s := NewSchema()
	s.Register(ConfigOption{Key: "verbose", Type: TypeBool})
	s.Register(ConfigOption{Key: "listen", Type: TypeString, Section: "http"})

	assert.True(t, s.IsKnown("", "verbose"))
	assert.True(t, s.IsKnown("http", "listen"))
	assert.True(t, s.IsKnown("http", "verbose"), "global keys are known in sections")
	assert.False(t, s.IsKnown("", "listen"))
	assert.False(t, s.IsKnown("", "nonexistent"))
	assert.Equal(t, []string{"http"}, s.Sections())
}

func TestSchemaRegisterOverwrites(t *testing.T) {
	t.Parallel()
	s := NewSchema()
	s.Register(ConfigOption{Key: "a", Default: "1"})
	s.Register(ConfigOption{Key: "a", Default: "2"})

	require.Len(t, s.Options(), 1)
	assert.Equal(t, "2", s.Lookup("", "a").Default)
}

func TestSchemaRegisterAll(t *testing.T) {
	t.Parallel()
	s := NewSchema()
	s.RegisterAll([]ConfigOption{
		{Key: "a"},
		{Key: "b"},
		{Key: "c", Section: "sec"},
	})
	assert.Len(t, s.Options(), 3)
	assert.Len(t, s.SectionOptions(""), 2)
	assert.Len(t, s.SectionOptions("sec"), 1)
}

func TestSchemaResolveOrder(t *testing.T) {
	s := NewSchema()
	s.Register(ConfigOption{Key: "addr", Section: "redis", Default: "default", EnvVar: "BTENG_TEST_RESOLVE"})
	c := NewConfig()

	assert.Equal(t, "default", s.Resolve(c, "redis", "addr"))

	c.SetSectionOption("redis", "addr", "from-file")
	assert.Equal(t, "from-file", s.Resolve(c, "redis", "addr"))

	t.Setenv("BTENG_TEST_RESOLVE", "from-env")
	assert.Equal(t, "from-env", s.Resolve(c, "redis", "addr"))

	assert.Empty(t, s.Resolve(c, "redis", "unknown"))
}

func TestValidateConfig(t *testing.T) {
	t.Parallel()
	c := NewConfig()
	c.SetGlobalOption("log-level", "info")
	c.SetSectionOption("runner", "max-ticks", "many")
	c.SetSectionOption("http", "metrics", "perhaps")

	issues := ValidateConfig(c, DefaultSchema())
	require.Len(t, issues, 2)
	assert.Contains(t, issues[0], `"max-ticks" in [runner]: expected int`)
	assert.Contains(t, issues[1], `"metrics" in [http]: expected bool`)
}

func TestValidateType(t *testing.T) {
	t.Parallel()
	tests := []struct {
		typ   OptionType
		value string
		ok    bool
	}{
		{TypeString, "anything", true},
		{"", "anything", true},
		{TypeBool, "yes", true},
		{TypeBool, "nah", false},
		{TypeInt, "42", true},
		{TypeInt, "4.2", false},
		{TypeDuration, "1m30s", true},
		{TypeDuration, "90", false},
		{"weird", "x", false},
	}
	for _, tt := range tests {
		err := validateType(tt.typ, tt.value)
		if tt.ok {
			assert.NoError(t, err, "%s %q", tt.typ, tt.value)
		} else {
			assert.Error(t, err, "%s %q", tt.typ, tt.value)
		}
	}
}

func TestFormatHelp(t *testing.T) {
	t.Parallel()
	help := DefaultSchema().FormatHelp()
	assert.True(t, strings.HasPrefix(help, "Global Options:\n"))
	assert.Contains(t, help, "[runner] Options:")
	assert.Contains(t, help, "tick-interval")
	assert.Contains(t, help, "default: 100ms")
	assert.Contains(t, help, "env: BTENG_LISTEN")
	assert.Less(t, strings.Index(help, "[http]"), strings.Index(help, "[redis]"))
}
