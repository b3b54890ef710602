package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"migrate", "seed-templates", "sweep", "create-user"}, names)
}

func TestCreateUser_RequiresEmailAndPassword(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"create-user", "--name", "Ops"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "email", "password" not set`)
}

func TestCreateUser_Flags(t *testing.T) {
	cmd := newCreateUserCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--email", "ops@example.com", "--password", "s3cret-pass", "--admin"}))

	admin, err := cmd.Flags().GetBool("admin")
	require.NoError(t, err)
	assert.True(t, admin)
	email, _ := cmd.Flags().GetString("email")
	assert.Equal(t, "ops@example.com", email)
}
