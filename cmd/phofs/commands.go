package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Capmega/phoundation-sub014/errors"
	"github.com/Capmega/phoundation-sub014/fs/core"
	"github.com/Capmega/phoundation-sub014/fs/local"
)

func (a *app) checkCommand() *cobra.Command {
	var (
		write bool
		kind  string
	)
	cmd := &cobra.Command{
		Use:   "check <path>",
		Short: "Check that a path is readable, or writable with --write",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := local.CheckOptions{}
			switch kind {
			case "", "path":
			case "file":
				opts.Kind = core.KindFile
			case "directory", "dir":
				opts.Kind = core.KindDirectory
			default:
				return errors.Newf(errors.CodeOutOfBounds, "invalid kind %q: use file or directory", kind)
			}

			p, err := a.fs.Path(args[0], nil)
			if err != nil {
				return err
			}
			if write {
				err = p.CheckWritable(opts)
			} else {
				err = p.CheckReadable(opts)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "Check write access instead of read access")
	cmd.Flags().StringVar(&kind, "kind", "", "Require the path to be a file or a directory")
	return cmd
}

func (a *app) sizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "size <directory>",
		Short: "Print the total size in bytes of all regular files below a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.fs.Directory(args[0], nil)
			if err != nil {
				return err
			}
			size, err := d.TreeFileSize()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), size)
			return nil
		},
	}
}

func (a *app) countCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "count <directory>",
		Short: "Print the number of non-directory entries below a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.fs.Directory(args[0], nil)
			if err != nil {
				return err
			}
			n, err := d.TreeFileCount()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}

func (a *app) treeCommand() *cobra.Command {
	var opts local.ListTreeOptions
	cmd := &cobra.Command{
		Use:   "tree <directory>",
		Short: "List the files below a directory in sorted order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.fs.Directory(args[0], nil)
			if err != nil {
				return err
			}
			paths, err := d.ListTree(opts)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&opts.Filters, "filter", "f", nil, "Regular expression matched against file names (repeatable)")
	cmd.Flags().BoolVar(&opts.NoRecurse, "no-recurse", false, "List only the top level")
	return cmd
}

func (a *app) findCommand() *cobra.Command {
	var opts local.ExecuteOptions
	cmd := &cobra.Command{
		Use:   "find <directory>",
		Short: "List the files of a directory that pass the walk filters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.fs.Directory(args[0], nil)
			if err != nil {
				return err
			}
			return d.Execute(opts).OnPathOnly(func(path string) error {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), path)
				return err
			})
		},
	}
	flags := cmd.Flags()
	flags.BoolVarP(&opts.Recurse, "recurse", "R", false, "Descend into subdirectories")
	flags.BoolVar(&opts.FollowHidden, "hidden", false, "Include dot entries")
	flags.BoolVar(&opts.FollowSymlinks, "symlinks", false, "Include symbolic links")
	flags.StringSliceVar(&opts.AllowExtensions, "allow", nil, "Only list files with these extensions")
	flags.StringSliceVar(&opts.DenyExtensions, "deny", nil, "Never list files with these extensions")
	flags.StringSliceVar(&opts.SkipPaths, "skip", nil, "Skip these paths, relative to the directory or absolute")
	return cmd
}

func (a *app) sha256Command() *cobra.Command {
	var expect string
	cmd := &cobra.Command{
		Use:   "sha256 <file>",
		Short: "Print the SHA-256 digest of a file, or verify it with --expect",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.fs.File(args[0], nil)
			if err != nil {
				return err
			}
			if expect != "" {
				if err := f.CheckSha256(expect, false); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			}
			sum, err := f.Sha256()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", sum, f.Name())
			return nil
		},
	}
	cmd.Flags().StringVar(&expect, "expect", "", "Expected hex digest")
	return cmd
}

func (a *app) mountedCommand() *cobra.Command {
	var (
		sources   []string
		mustMount bool
	)
	cmd := &cobra.Command{
		Use:   "mounted <directory>",
		Short: "Print the mount state of a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.fs.Directory(args[0], nil)
			if err != nil {
				return err
			}
			if mustMount {
				if err := d.CheckMounted(sources...); err != nil {
					return err
				}
			}
			state, err := d.IsMounted(sources...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), state)
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&sources, "source", "s", nil, "Expected mount sources")
	cmd.Flags().BoolVar(&mustMount, "require", false, "Fail with NOT_MOUNTED when nothing is mounted")
	return cmd
}

func (a *app) linesCommand() *cobra.Command {
	var (
		bufferSize int
		words      bool
	)
	cmd := &cobra.Command{
		Use:   "lines <file>",
		Short: "Print the number of lines, or words with --words, of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.fs.File(args[0], nil)
			if err != nil {
				return err
			}
			if bufferSize > 0 {
				if err := f.SetBufferSize(bufferSize); err != nil {
					return err
				}
			}
			count := f.LineCount
			if words {
				count = f.WordCount
			}
			n, err := count()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
	cmd.Flags().IntVar(&bufferSize, "buffer-size", 0, "Read chunk size in bytes (default from PHO_FS_BUFFER_SIZE)")
	cmd.Flags().BoolVar(&words, "words", false, "Count words instead of lines")
	return cmd
}
