package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	offlineCmd.AddCommand(offlineListCmd, offlineClearCmd)
	rootCmd.AddCommand(offlineCmd)
}

var offlineCmd = &cobra.Command{
	Use:   "offline",
	Short: "Inspect posts saved while the backend was unreachable",
}

var offlineListCmd = &cobra.Command{
	Use:   "list",
	Short: "List locally saved posts, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.close()

		posts := a.store.ListOffline(cmd.Context())
		if len(posts) == 0 {
			fmt.Println("no offline posts")
			return nil
		}
		for _, post := range posts {
			fmt.Printf("%s  %s  %s  %s\n", post.ID, post.CreatedAt.Format("2006-01-02 15:04"), post.Status, summary(post.Content))
		}
		return nil
	},
}

var offlineClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every locally saved post",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.close()

		count := a.store.Count(cmd.Context())
		if err := a.store.ClearOffline(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("removed %d offline posts\n", count)
		return nil
	},
}
