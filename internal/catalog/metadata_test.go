package catalog

import (
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePackageMeta(t *testing.T) {
	meta, err := ParsePackageMeta([]byte(`
name = "Example Mod"
short_description = "Does example things"
tags = ["automation", "networking"]
authors = ["alice", "bob"]
`))
	require.NoError(t, err)
	assert.Equal(t, "Example Mod", meta.Name)
	assert.Equal(t, "Does example things", meta.ShortDescription)
	assert.Equal(t, []string{"automation", "networking"}, meta.Tags)
	assert.Equal(t, []string{"alice", "bob"}, meta.Authors)
}

func TestParsePackageMeta_Invalid(t *testing.T) {
	_, err := ParsePackageMeta([]byte(`name = [unterminated`))
	assert.Error(t, err)
}

func TestParseVersionMeta(t *testing.T) {
	meta, err := ParseVersionMeta([]byte(`
loader_version = ">=0.3.0, <0.4.0"
game_version = "^1.0.0"

[[mod_dependencies]]
id = "libX"
version = "^1.2.0"

[[mod_dependencies]]
id = "libY"

[[notes]]
name = "setup"
title = "Setup"
description = "How to set things up"
`))
	require.NoError(t, err)

	require.NotNil(t, meta.LoaderVersion)
	assert.Equal(t, ">=0.3.0, <0.4.0", meta.LoaderVersion.String())
	require.NotNil(t, meta.GameVersion)

	require.Len(t, meta.ModDependencies, 2)
	assert.Equal(t, "libX", meta.ModDependencies[0].ID)
	require.NotNil(t, meta.ModDependencies[0].Version)
	assert.Nil(t, meta.ModDependencies[1].Version)

	require.Len(t, meta.Notes, 1)
	assert.Equal(t, "Setup", meta.Notes[0].Title)
}

func TestParseVersionMeta_AllOptional(t *testing.T) {
	meta, err := ParseVersionMeta([]byte(``))
	require.NoError(t, err)
	assert.Nil(t, meta.LoaderVersion)
	assert.Nil(t, meta.GameVersion)
	assert.Empty(t, meta.ModDependencies)
}

func TestParseVersionMeta_BadRequirement(t *testing.T) {
	_, err := ParseVersionMeta([]byte(`loader_version = "not a range"`))
	assert.Error(t, err)
}

func TestVersionMeta_Version(t *testing.T) {
	meta, err := ParseVersionMeta([]byte(`
game_version = ">=1.0.0"

[[mod_dependencies]]
id = "libX"
`))
	require.NoError(t, err)

	num := semver.MustParse("2.1.0")
	v := meta.Version(num)
	assert.Equal(t, num, v.Version)
	assert.Nil(t, v.LoaderVersion)
	require.NotNil(t, v.GameVersion)
	require.Len(t, v.Dependencies, 1)
	assert.Equal(t, "libX", v.Dependencies[0].ID)
}

func TestRequirement_Matches(t *testing.T) {
	req, err := ParseRequirement(">=1.0.0, <2.0.0")
	require.NoError(t, err)

	assert.True(t, req.Matches(semver.MustParse("1.5.0")))
	assert.False(t, req.Matches(semver.MustParse("2.0.0")))
	assert.False(t, req.Matches(semver.MustParse("0.9.9")))
}
