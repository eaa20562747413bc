package main

import (
	"context"
	"fmt"
	"os"

	"newsdesk/internal/newsroom"
	"newsdesk/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	listQuery string
	assumeYes bool
	showFail  bool
)

var postsCmd = &cobra.Command{
	Use:   "posts",
	Short: "List, delete and share news posts",
}

var postsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List posts, newest first, drafts on top",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(true)
		if err != nil {
			return err
		}
		defer st.Close()

		ui := newTerminal(os.Stdin, os.Stdout, cfg.Origin)
		ctrl := newsroom.New(st, ui, ui, ui, logger)
		if err := ctrl.Load(roleContext(cmd)); err != nil {
			return err
		}
		ctrl.SetQuery(listQuery)
		printPosts(os.Stdout, ctrl.Snapshot(), cfg.Location())
		return nil
	},
}

var postsDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a post after confirmation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(true)
		if err != nil {
			return err
		}
		defer st.Close()

		ui := newTerminal(os.Stdin, os.Stdout, cfg.Origin)
		ctrl := newsroom.New(st, ui, ui, ui, logger)

		var confirm newsroom.Confirmer = ui
		if assumeYes {
			confirm = newsroom.Answer(true)
		}
		deleted, err := ctrl.Delete(roleContext(cmd), args[0], confirm)
		if err != nil {
			return err
		}
		if !deleted {
			fmt.Println("Abgebrochen.")
		}
		return nil
	},
}

var postsShareCmd = &cobra.Command{
	Use:   "share [id]",
	Short: "Print the LinkedIn share link of a post",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(true)
		if err != nil {
			return err
		}
		defer st.Close()

		post, err := st.Get(roleContext(cmd), args[0])
		if err != nil {
			return err
		}
		ui := newTerminal(os.Stdin, os.Stdout, cfg.Origin)
		newsroom.New(st, ui, ui, ui, logger).Share(*post)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import [url]",
	Short: "Queue a URL to be imported as a draft post",
	Args: func(cmd *cobra.Command, args []string) error {
		if showFail {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		queue, err := store.NewQueue(cfg.Redis.Addr)
		if err != nil {
			return err
		}
		defer queue.Close()

		if showFail {
			failed, err := queue.Failed(cmd.Context())
			if err != nil {
				return err
			}
			for _, f := range failed {
				fmt.Printf("%s  %s  %s\n", f.FailedAt.In(cfg.Location()).Format("2006-01-02 15:04"), f.Job.URL, f.Error)
			}
			return nil
		}

		job := store.NewImportJob(args[0])
		if err := queue.Push(cmd.Context(), job); err != nil {
			return err
		}
		logger.Info("Import queued",
			zap.String("job_id", job.ID.String()),
			zap.String("url", job.URL))
		return nil
	},
}

// roleContext runs store calls as the --role given on the command line.
func roleContext(cmd *cobra.Command) context.Context {
	return store.WithRole(cmd.Context(), store.Role(roleFlag))
}

func init() {
	postsListCmd.Flags().StringVarP(&listQuery, "query", "q", "", "Only posts whose title or tags contain this")
	postsDeleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
	importCmd.Flags().BoolVar(&showFail, "failed", false, "List imports that failed instead of queueing one")

	postsCmd.AddCommand(postsListCmd, postsDeleteCmd, postsShareCmd)
}
