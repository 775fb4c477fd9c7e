package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/Veraticus/goalpost/internal/common"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSheetsPush_NotConfigured(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("database.path", filepath.Join(t.TempDir(), "goalpost.db"))
	viper.Set("sheets.token_file", filepath.Join(t.TempDir(), "token.json"))

	cmd := sheetsPushCmd()
	cmd.SetContext(context.Background())
	err := cmd.RunE(cmd, nil)

	require.Error(t, err)
	var userErr *common.UserError
	assert.True(t, errors.As(err, &userErr))
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestSheetsAuth_RequiresClient(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("sheets.client_id", "client")

	cmd := sheetsAuthCmd()
	cmd.SetContext(context.Background())
	err := cmd.RunE(cmd, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMissingConfig)
	assert.Contains(t, err.Error(), "sheets.client_secret")
}

func TestSheetsCmd_Subcommands(t *testing.T) {
	var names []string
	for _, c := range sheetsCmd().Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"push", "auth"}, names)
}
