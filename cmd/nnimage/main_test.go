package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConf(t *testing.T, dir, contents string) string {
	t.Helper()
	path := filepath.Join(dir, "nnimage.conf")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestCreateActionWritesImage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kernel.elf"), []byte("ELF payload"), 0o644))
	conf := writeConf(t, dir, "image boot {\nsource kernel.elf\n}\n")

	out := filepath.Join(dir, "nndisk.img")
	opts := &options{confFile: conf, output: out, directory: dir}
	require.NoError(t, run(opts, "create"))

	info, err := os.Stat(out)
	require.NoError(t, err)
	require.Greater(t, info.Size(), int64(0))
}

func TestPartitionActionDoesNotWriteImage(t *testing.T) {
	dir := t.TempDir()
	conf := writeConf(t, dir, "partition {\nsize 4096\n}\n")

	out := filepath.Join(dir, "nndisk.img")
	opts := &options{confFile: conf, output: out, directory: dir}
	require.NoError(t, run(opts, "partition"))

	_, err := os.Stat(out)
	require.True(t, os.IsNotExist(err))
}

func TestUnknownActionIsError(t *testing.T) {
	dir := t.TempDir()
	conf := writeConf(t, dir, "partition {\nsize 4096\n}\n")
	opts := &options{confFile: conf, output: filepath.Join(dir, "nndisk.img"), directory: dir}
	err := run(opts, "bogus")
	require.Error(t, err)
}

func TestMissingConfFileIsError(t *testing.T) {
	dir := t.TempDir()
	opts := &options{confFile: filepath.Join(dir, "missing.conf"), output: filepath.Join(dir, "nndisk.img"), directory: dir}
	require.Error(t, run(opts, "create"))
}

func TestRootCommandDefaultsMatchSpec(t *testing.T) {
	root := newRootCmd()
	f := root.PersistentFlags()

	confFlag := f.Lookup("conf")
	require.NotNil(t, confFlag)
	require.Equal(t, "nnimage.conf", confFlag.DefValue)

	outFlag := f.Lookup("output")
	require.NotNil(t, outFlag)
	require.Equal(t, "nndisk.img", outFlag.DefValue)
}
