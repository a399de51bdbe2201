package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/supercache/supercache/internal/cache"
	"github.com/supercache/supercache/internal/config"
)

// newEntriesCmd 提供离线管理缓存条目的子命令，直接操作 StoragePath，无需服务在线。
func newEntriesCmd(opts *cliOptions) *cobra.Command {
	entries := &cobra.Command{
		Use:   "entries",
		Short: "Inspect or purge cached entries",
	}

	var parent string
	list := &cobra.Command{
		Use:   "list",
		Short: "List cached paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(opts.configPath())
			if err != nil {
				return err
			}
			paths, err := store.List(parent)
			if err != nil {
				return failf("列出缓存失败: %v", err)
			}
			for _, p := range paths {
				fmt.Fprintln(stdOut, p)
			}
			return nil
		},
	}
	list.Flags().StringVar(&parent, "parent", "", "只列出以该前缀开头的路径")

	exists := &cobra.Command{
		Use:   "exists <path>",
		Short: "Report whether a path is cached",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(opts.configPath())
			if err != nil {
				return err
			}
			fmt.Fprintln(stdOut, store.Exists(args[0]))
			return nil
		},
	}

	var recursive bool
	del := &cobra.Command{
		Use:   "delete <path>",
		Short: "Delete a cached path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(opts.configPath())
			if err != nil {
				return err
			}
			if !recursive {
				fmt.Fprintln(stdOut, store.Delete(args[0]))
				return nil
			}
			deleted, err := store.DeleteRecursive(args[0])
			if err != nil {
				return failf("删除缓存失败: %v", err)
			}
			fmt.Fprintln(stdOut, deleted)
			return nil
		},
	}
	del.Flags().BoolVar(&recursive, "recursive", false, "同时删除该路径下的所有条目")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(opts.configPath())
			if err != nil {
				return err
			}
			cleared, err := store.Clear()
			if err != nil {
				return failf("清空缓存失败: %v", err)
			}
			fmt.Fprintln(stdOut, cleared)
			return nil
		},
	}

	entries.AddCommand(list, exists, del, clearCmd)
	return entries
}

func openStore(configPath string) (*cache.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, failf("加载配置失败: %v", err)
	}
	finder, err := cache.NewOSFinder(cfg.Global.StoragePath)
	if err != nil {
		return nil, failf("初始化缓存目录失败: %v", err)
	}
	return cache.NewStore(finder), nil
}
