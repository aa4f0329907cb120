package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/campusai/portal/internal/models"
	"github.com/campusai/portal/internal/upload"
)

// ErrUploadFailed is returned when at least one file was rejected or failed.
var ErrUploadFailed = errors.New("some files were not uploaded")

func (a *App) newUploadCmd() *cobra.Command {
	var (
		account  string
		category string
	)

	cmd := &cobra.Command{
		Use:   "upload <file|dir>...",
		Short: "Extract and upload files to an account's knowledge base",
		Long: `Queues every file named on the command line (directories are walked),
then extracts and uploads them one at a time to the chosen category.
Rejected and failed files are reported and make the command exit non-zero.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := models.ParseCategory(category)
			if err != nil {
				return err
			}
			if account == "" {
				return errors.New("--account is required")
			}

			validator := upload.NewValidator(nil)
			files, rejected, err := collectFiles(args, validator)
			if err != nil {
				return err
			}

			logger := a.logger()
			queue := upload.NewManager(
				a.NewExtractor(logger),
				a.NewUploader(a.backendURL, logger),
				upload.WithValidator(validator),
				upload.WithLogger(logger),
			)

			out := cmd.OutOrStdout()
			failed := false
			for _, res := range append(rejected, queue.Enqueue(files...)...) {
				if !res.Verdict.Accepted {
					failed = true
					fmt.Fprintf(out, "skip    %s (%s)\n", res.Name, res.Verdict.Reason)
				}
			}

			summary, runErr := queue.Process(commandContext(cmd), account, upload.Fixed(cat))
			for _, it := range queue.Items() {
				switch it.Status {
				case models.ItemStatusCompleted:
					fmt.Fprintf(out, "ok      %s -> %s/%s\n", it.File.Name, it.Category, it.TargetName)
				case models.ItemStatusError:
					failed = true
					fmt.Fprintf(out, "error   %s: %s\n", it.File.Name, it.Error)
				default:
					failed = true
					fmt.Fprintf(out, "%-7s %s\n", it.Status, it.File.Name)
				}
			}
			fmt.Fprintf(out, "\n%d uploaded, %d failed, %d skipped in %s\n",
				summary.Completed, summary.Failed, summary.Skipped, summary.Duration().Round(time.Millisecond))

			if runErr != nil {
				return runErr
			}
			if failed {
				return ErrUploadFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&account, "account", "a", "", "Department account email")
	cmd.Flags().StringVarP(&category, "category", "c", string(models.CategoryNotice), "Upload category (notice, faq, impData)")
	return cmd
}

// collectFiles reads every path, walking directories and skipping hidden
// entries. Names the validator rejects are reported without being read.
func collectFiles(paths []string, validator *upload.Validator) ([]models.SourceFile, []upload.EnqueueResult, error) {
	var (
		files    []models.SourceFile
		rejected []upload.EnqueueResult
	)
	add := func(path string) error {
		name := filepath.Base(path)
		if verdict := validator.Validate(name); !verdict.Accepted {
			rejected = append(rejected, upload.EnqueueResult{Name: name, Verdict: verdict})
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files = append(files, models.NewSourceFile(name, data))
		return nil
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, nil, err
		}
		if !info.IsDir() {
			if err := add(root); err != nil {
				return nil, nil, err
			}
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path != root && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			return add(path)
		})
		if err != nil {
			return nil, nil, err
		}
	}
	return files, rejected, nil
}
