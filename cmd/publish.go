package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"syncstore/core/storage"
	"syncstore/feature/furniture/models"

	"github.com/minio/minio-go/v7"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// publishCmd uploads a gamedata file to the bucket.
var publishCmd = &cobra.Command{
	Use:   "publish <FurnitureData.json>",
	Short: "Upload a furniture gamedata file to the bucket",
	Long: `Validates a FurnitureData.json file and uploads it as the gamedata object watched by
the furniture feature. The bucket is created when missing.`,
	Args: cobra.ExactArgs(1),
	RunE: runPublish,
}

func init() {
	RootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) (err error) {
	ctx := context.Background()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	var gamedata models.FurnitureData
	if err := json.Unmarshal(data, &gamedata); err != nil {
		return fmt.Errorf("invalid gamedata file %s: %w", args[0], err)
	}
	items, rejected := gamedata.Items()

	rt, err := newStorageRuntime()
	if err != nil {
		return err
	}
	defer func() {
		if cErr := rt.Close(); err == nil {
			err = cErr
		}
	}()

	bucket := rt.cfg.Storage.Bucket
	if err := storage.EnsureBucket(ctx, rt.store, bucket, rt.cfg.Storage.Region); err != nil {
		return err
	}
	info, err := rt.store.PutObject(ctx, bucket, rt.cfg.Furniture.Object, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("failed to upload gamedata: %w", err)
	}

	rt.log.Info("Gamedata published",
		zap.String("bucket", bucket),
		zap.String("object", rt.cfg.Furniture.Object),
		zap.String("etag", info.ETag),
		zap.Int("items", len(items)),
		zap.Int("rejected", len(rejected)))
	return nil
}
