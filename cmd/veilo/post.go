package main

import (
	"fmt"
	"strings"

	"veilo/pkg/models"

	"github.com/spf13/cobra"
)

var postInput models.PostInput

func init() {
	flags := postCreateCmd.Flags()
	flags.StringVar(&postInput.Title, "title", "", "Post title")
	flags.StringVar(&postInput.Topic, "topic", "", "Post topic")
	flags.StringVar(&postInput.Feeling, "feeling", "", "How the author feels")
	flags.StringSliceVar(&postInput.Tags, "tag", nil, "Tag (repeatable)")
	flags.BoolVar(&postInput.Anonymous, "anonymous", true, "Post anonymously")

	postCmd.AddCommand(postCreateCmd, postListCmd)
	rootCmd.AddCommand(postCmd)
}

var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Create and list posts",
}

var postCreateCmd = &cobra.Command{
	Use:   "create <content>",
	Short: "Create a post, saving it locally when the backend is down",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.close()

		input := postInput
		input.Content = strings.Join(args, " ")

		result, err := a.posts.Create(cmd.Context(), input)
		if err != nil {
			return err
		}
		if result.Offline() {
			fmt.Printf("backend unreachable, saved locally as %s (%s)\n", result.Emergency.ID, result.Emergency.Status)
			return nil
		}

		fmt.Printf("created %s\n", result.Post.ID)
		return nil
	},
}

var postListCmd = &cobra.Command{
	Use:   "list",
	Short: "List posts from the backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.close()

		posts, err := a.posts.List(cmd.Context())
		if err != nil {
			return err
		}

		for _, post := range posts {
			fmt.Printf("%s  %s  %s\n", post.ID, post.CreatedAt.Format("2006-01-02 15:04"), summary(post.Content))
		}
		return nil
	},
}

func summary(content string) string {
	const maxLen = 60
	content = strings.Join(strings.Fields(content), " ")
	if len([]rune(content)) <= maxLen {
		return content
	}
	return string([]rune(content)[:maxLen-3]) + "..."
}
