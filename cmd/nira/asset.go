package main

import (
	"fmt"
	"io"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/openmined/niraclient/internal/filelist"
	"github.com/openmined/niraclient/internal/hasher"
	"github.com/openmined/niraclient/internal/nirasdk"
	"github.com/openmined/niraclient/internal/uploader"
	"github.com/spf13/cobra"
)

var assetTypes = []string{"default", "sculpt", "photogrammetry", "volumetric_video"}

const uploadFilesHelp = `Files are given as arguments (glob patterns such as "scans/**/*.obj" and
directories are expanded, honoring .niraignore) or, when no file argument is
given, as a JSON or YAML array on stdin. Each stdin entry is either a path or
an object with "path", "type" and "fetchurl" keys; when any entry has a
fetchurl the server downloads every file itself.`

func newAssetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "asset",
		Short: "Create, list, share and delete assets",
	}

	files := &cobra.Command{
		Use:   "files",
		Short: "Manage the files of an existing asset",
	}
	files.AddCommand(newAssetFilesAddCmd())

	cmd.AddCommand(
		newAssetCreateCmd(),
		files,
		newAssetListCmd(),
		newAssetDeleteCmd(),
		newAssetDeleteBeforeCmd(),
		newAssetSharingCmd(),
	)
	return cmd
}

func addUploadFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("no-upload-compression", false, "Never compress upload parts")
	cmd.Flags().Int("wait-for-asset-processing", 3600, "Seconds to wait for the server to process the asset, 0 returns right after upload")
	cmd.Flags().String("dcc-name", "", "Name of the DCC application the files come from")
	cmd.Flags().String("hasher", hasher.KindMeowfile, "Fingerprint implementation: meowfile or blake3")
	cmd.Flags().String("type", "", "File type applied to every file given as an argument")
}

func newAssetCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <asset-name> <asset-type> [files...]",
		Short: "Create an asset, upload files to it and print its URL",
		Long: "Create an asset, upload files to it and print its URL once processed.\n" +
			"Asset types: default, sculpt, photogrammetry, volumetric_video.\n\n" + uploadFilesHelp,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, assetType := args[0], args[1]
			if !slices.Contains(assetTypes, assetType) {
				return fmt.Errorf("invalid asset type %q, choose one of %v", assetType, assetTypes)
			}

			sdk, s, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer sdk.Close()

			existing, err := sdk.Assets.FindByName(cmd.Context(), name)
			if err != nil {
				return err
			}
			if existing != nil {
				return fmt.Errorf("an asset named %q already exists (%s), use 'nira asset files add' to add files to it",
					name, sdk.AssetURL(existing.ShortUUID))
			}

			return runUpload(cmd, sdk, s, name, assetType, args[2:])
		},
	}
	addUploadFlags(cmd)
	return cmd
}

func newAssetFilesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <asset-name> [files...]",
		Short: "Upload files to an existing asset and print its URL",
		Long:  "Upload files to an existing asset and print its URL once processed.\n\n" + uploadFilesHelp,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sdk, s, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer sdk.Close()

			asset, err := sdk.Assets.FindByName(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asset == nil {
				return fmt.Errorf("no asset named %q, use 'nira asset create' to create it", args[0])
			}

			return runUpload(cmd, sdk, s, asset.Name, asset.Type, args[1:])
		},
	}
	addUploadFlags(cmd)
	return cmd
}

func runUpload(cmd *cobra.Command, sdk *nirasdk.NiraSDK, s *settings, name, assetType string, fileArgs []string) error {
	noCompression, _ := cmd.Flags().GetBool("no-upload-compression")
	waitSeconds, _ := cmd.Flags().GetInt("wait-for-asset-processing")
	dccName, _ := cmd.Flags().GetString("dcc-name")
	hasherKind, _ := cmd.Flags().GetString("hasher")
	fileType, _ := cmd.Flags().GetString("type")

	var files []uploader.FileSpec
	var err error
	if len(fileArgs) > 0 {
		files, err = filelist.FromArgs(fileArgs, fileType)
	} else {
		files, err = filelist.Parse(cmd.InOrStdin())
	}
	if err != nil {
		return err
	}

	h, err := hasher.New(hasherKind)
	if err != nil {
		return err
	}

	opts := &uploader.Options{UploadServiceHost: s.UploadServiceHost}
	if isatty.IsTerminal(os.Stderr.Fd()) {
		opts.Progress = newProgressPrinter(cmd.ErrOrStderr())
	}

	result, err := uploader.New(sdk, h, opts).UploadAsset(cmd.Context(), &uploader.UploadRequest{
		Files:              files,
		AssetType:          assetType,
		AssetName:          name,
		DCCName:            dccName,
		DisableCompression: noCompression,
		MaxWait:            time.Duration(max(waitSeconds, 0)) * time.Second,
	})
	if err != nil {
		return err
	}

	if opts.Progress != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), gray.Render(uploadSummary(result.Stats)))
	}

	out := cmd.OutOrStdout()
	if result.Status == uploader.StatusProcessed {
		_, err := fmt.Fprintln(out, result.AssetURL)
		return err
	}

	fmt.Fprintln(out, result.Status)
	if result.Status == uploader.StatusPending && result.AssetURL != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s still processing, check %s\n", yellow.Render("Pending"), result.AssetURL)
	}
	return &exitError{code: 1}
}

// newProgressPrinter redraws one status line per finished part.
func newProgressPrinter(w io.Writer) uploader.ProgressFunc {
	var mu sync.Mutex
	return func(file string, partsDone, totalParts int) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(w, "\r\033[K%s %s %d/%d", cyan.Render("uploading"), file, partsDone, totalParts)
		if partsDone == totalParts {
			fmt.Fprintln(w)
		}
	}
}

func newAssetListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List assets as JSON, filters are combined with AND",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			id, _ := cmd.Flags().GetString("uuid")

			sdk, _, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer sdk.Close()

			assets, err := sdk.Assets.List(cmd.Context(), &nirasdk.ListAssetsParams{Name: name, UUID: id})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), assets)
		},
	}
	cmd.Flags().String("name", "", "Filter by asset name")
	cmd.Flags().String("uuid", "", "Filter by asset uuid")
	return cmd
}

func newAssetDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <short-uuid|url>",
		Short: "Delete an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			short, err := nirasdk.ParseAssetRef(args[0])
			if err != nil {
				return err
			}

			sdk, _, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer sdk.Close()

			if err := sdk.Assets.Delete(cmd.Context(), short); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", green.Render("Deleted"), short)
			return err
		},
	}
}

func newAssetDeleteBeforeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete-before <iso-date>",
		Short: "Delete every asset created before a date, dry run unless --confirm",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			confirm, _ := cmd.Flags().GetBool("confirm")
			if _, err := time.Parse(time.RFC3339, args[0]); err != nil {
				if _, err := time.Parse(time.DateOnly, args[0]); err != nil {
					return fmt.Errorf("invalid date %q, use an ISO date such as 2024-01-31 or 2024-01-31T00:00:00Z", args[0])
				}
			}

			sdk, _, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer sdk.Close()

			res, err := sdk.Assets.DeleteBefore(cmd.Context(), args[0], confirm)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().Bool("confirm", false, "Actually delete, otherwise only report what would be deleted")
	return cmd
}

func newAssetSharingCmd() *cobra.Command {
	sharing := &cobra.Command{
		Use:   "sharing",
		Short: "Share assets with users or publicly",
	}
	user := &cobra.Command{
		Use:   "user",
		Short: "Share assets with individual users",
	}

	user.AddCommand(&cobra.Command{
		Use:   "add <short-uuid|url> <email> <role> [expiration]",
		Short: "Invite a user to an asset with a role such as viewer or contributor",
		Long: "Invite a user to an asset with a role such as viewer or contributor.\n" +
			"The optional expiration is an ISO datetime, e.g. 2022-02-24T23:00:00.000Z.",
		Args: cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			short, err := nirasdk.ParseAssetRef(args[0])
			if err != nil {
				return err
			}
			params := &nirasdk.ShareAssetParams{Email: args[1], Role: args[2]}
			if len(args) == 4 {
				params.ExpirationDate = args[3]
			}

			sdk, _, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer sdk.Close()

			res, err := sdk.Assets.ShareWithUser(cmd.Context(), short, params)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	})

	sharing.AddCommand(user, &cobra.Command{
		Use:       "set-public <short-uuid|url> <on|off>",
		Short:     "Turn public access to an asset on or off",
		Args:      cobra.MatchAll(cobra.ExactArgs(2), onOffArg(1)),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			short, err := nirasdk.ParseAssetRef(args[0])
			if err != nil {
				return err
			}

			sdk, _, err := newClient(cmd)
			if err != nil {
				return err
			}
			defer sdk.Close()

			res, err := sdk.Assets.SetPublic(cmd.Context(), short, args[1] == "on")
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	})
	return sharing
}

func onOffArg(i int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if args[i] != "on" && args[i] != "off" {
			return fmt.Errorf("expected on or off, got %q", args[i])
		}
		return nil
	}
}

func uploadSummary(stats uploader.TransferStats) string {
	return fmt.Sprintf("%d files (%d deduplicated), %d parts, %s read, %s sent in %s",
		stats.Files, stats.Deduplicated, stats.PartsSent,
		humanize.IBytes(uint64(stats.BytesRead)), humanize.IBytes(uint64(stats.BytesSent)),
		stats.Elapsed.Round(time.Millisecond))
}
