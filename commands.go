package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"tornedge/internal/api"
	"tornedge/internal/config"
	"tornedge/internal/features"
	"tornedge/internal/matching"
	"tornedge/internal/store"
	"tornedge/internal/version"
)

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var debug bool
	cmd := &cobra.Command{
		Use:   "extract <photo>",
		Short: "Print the tear fingerprint of a photo as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := extractFile(cmd.Context(), ctx, args[0], debug)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(fs)
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "Write intermediate images to the debug directory")
	return cmd
}

func extractFile(parent context.Context, ctx *commandContext, path string, debug bool) (features.FeatureSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return features.FeatureSet{}, fmt.Errorf("read photo: %w", err)
	}
	ex, closer, err := ctx.newExtractor(debug)
	if err != nil {
		return features.FeatureSet{}, err
	}
	defer closer()
	if parent == nil {
		parent = context.Background()
	}
	return ex.ExtractPhoto(parent, data)
}

func newRegisterCommand(ctx *commandContext) *cobra.Command {
	var attach string
	cmd := &cobra.Command{
		Use:   "register <photo>",
		Short: "Extract a photo and store its fingerprint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := extractFile(cmd.Context(), ctx, args[0], false)
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			id, err := st.Register(cmd.Context(), fs)
			if err != nil {
				return err
			}
			if attach != "" {
				dest, err := copyAttachment(ctx.config.Files.Dir, attach)
				if err != nil {
					return err
				}
				if err := st.SetFilePath(cmd.Context(), id, api.FilesRoute+filepath.Base(dest)); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered fragment %d\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&attach, "file", "", "File to attach to the fragment")
	return cmd
}

func copyAttachment(dir, src string) (string, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return "", fmt.Errorf("read attachment: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create files directory: %w", err)
	}
	dest := filepath.Join(dir, filepath.Base(src))
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", fmt.Errorf("write attachment: %w", err)
	}
	return dest, nil
}

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored fragments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			records, err := st.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No fragments stored")
				return nil
			}
			rows := make([][]string, 0, len(records))
			for _, r := range records {
				rows = append(rows, []string{
					store.FormatID(r.ID),
					r.RegisteredDate.Local().Format("2006-01-02 15:04:05"),
					r.Features.Height,
					r.Features.Angle,
					r.Features.Position,
					r.FilePath,
					r.ChatRoomID,
				})
			}
			headers := []string{"ID", "Registered", "fh", "fa", "fp", "File", "Chat Room"}
			aligns := []columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignLeft, alignLeft, alignLeft}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, aligns))
			return nil
		},
	}
}

func newMatchCommand(ctx *commandContext) *cobra.Command {
	var useHeight, useAngle, usePosition, withFile bool
	cmd := &cobra.Command{
		Use:   "match <image_id>",
		Short: "Find the stored fragment whose tear fits the given fragment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := store.ParseID(args[0])
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			query, err := st.FeaturesByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			list := st.AllFeatures
			if withFile {
				list = st.FeaturesWithFile
			}
			all, err := list(cmd.Context())
			if err != nil {
				return err
			}
			self := store.FormatID(id)
			candidates := make([]matching.Candidate, 0, len(all))
			for _, c := range all {
				if c.ID != self {
					candidates = append(candidates, c)
				}
			}

			opts := ctx.matchOptions()
			flags := cmd.Flags()
			if flags.Changed("fh") {
				opts.UseHeight = useHeight
			}
			if flags.Changed("fa") {
				opts.UseAngle = useAngle
			}
			if flags.Changed("fp") {
				opts.UsePosition = usePosition
			}

			res, err := ctx.engine().Match(query, candidates, opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !res.Found {
				fmt.Fprintln(out, "No matching fragment")
				return nil
			}
			rows := make([][]string, 0, len(res.Scores))
			for _, s := range res.Scores {
				rows = append(rows, []string{
					s.ID,
					formatScore(s.SimilarX),
					formatScore(s.SimilarY),
					formatScore(s.Raw),
					formatScore(s.Normalized),
					formatScore(s.Weighted),
				})
			}
			headers := []string{"ID", "Sim X", "Sim Y", "Raw", "Normalized", "Weighted"}
			aligns := []columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight, alignRight}
			fmt.Fprintln(out, renderTable(headers, rows, aligns))
			fmt.Fprintf(out, "Best match: %s\n", res.ID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&useHeight, "fh", true, "Gate candidates by tear height")
	cmd.Flags().BoolVar(&useAngle, "fa", false, "Gate candidates by tear angle")
	cmd.Flags().BoolVar(&usePosition, "fp", false, "Gate candidates by tear orientation")
	cmd.Flags().BoolVar(&withFile, "with-file", false, "Only consider fragments with an attached file")
	return cmd
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <image_id>",
		Short: "Remove a stored fragment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := store.ParseID(args[0])
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			if err := st.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted fragment %d\n", id)
			return nil
		},
	}
}

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config
			if bind == "" {
				bind = cfg.Server.Bind
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			lock := flock.New(cfg.Store.Path + ".lock")
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire server lock: %w", err)
			}
			if !ok {
				return errors.New("another server is already using this database")
			}
			defer func() { _ = lock.Unlock() }()

			st, err := store.Open(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer st.Close()

			ex, closer, err := ctx.newExtractor(false)
			if err != nil {
				return err
			}
			defer closer()

			h := api.NewHandler(ex, st, ctx.engine(), api.Options{
				FilesDir:       cfg.Files.Dir,
				ChatLogDir:     cfg.Files.ChatLogDir,
				MaxUploadBytes: int64(cfg.Server.MaxUploadMiB) << 20,
				Match:          ctx.matchOptions(),
			}, ctx.logger)
			srv := api.NewServer(bind, h, ctx.logger)

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := srv.Start(runCtx); err != nil {
				return err
			}
			ctx.logger.Info().Str("addr", srv.Addr()).Str("db", st.Path()).Str("version", version.Version).Msg("server listening")
			<-runCtx.Done()
			srv.Stop()
			return nil
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Address to listen on (overrides config)")
	return cmd
}

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	var overwrite bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := *ctx.configFlag
			if path == "" {
				p, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				path = p
			}
			if err := config.CreateSample(path, overwrite); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, path, exists, err := config.Load(*ctx.configFlag)
			if err != nil {
				return err
			}
			if !exists {
				fmt.Fprintln(cmd.OutOrStdout(), "No config file found; defaults are valid")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", path)
			return nil
		},
	}

	cmd.AddCommand(initCmd, validateCmd)
	return cmd
}
