// Command exportworker runs the report export worker: it long-polls the
// configured broker queue for export-job messages and drives each one
// through the streaming export pipeline described in SPEC_FULL.md.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/sifthub/export-worker/internal/analytics"
	"github.com/sifthub/export-worker/internal/audit"
	"github.com/sifthub/export-worker/internal/cache"
	"github.com/sifthub/export-worker/internal/config"
	"github.com/sifthub/export-worker/internal/httpclient"
	"github.com/sifthub/export-worker/internal/logging"
	"github.com/sifthub/export-worker/internal/notify"
	"github.com/sifthub/export-worker/internal/queue"
	"github.com/sifthub/export-worker/internal/router"
	"github.com/sifthub/export-worker/internal/workbook"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "exportworker",
		Short: "exportworker — asynchronous report export pipeline worker",
		Long: `exportworker consumes export-job requests from a durable message queue,
assembles a multi-sheet spreadsheet from paginated upstream analytics APIs,
materializes it incrementally in object storage, and notifies the
requesting user on completion while keeping an auditable job history.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context())
		},
	}
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("exportworker %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.Build(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	logger.Info("starting export worker",
		zap.String("version", version),
		zap.String("queue_url", cfg.SQSQueueURL),
		zap.String("bucket", cfg.AWSS3Bucket),
		zap.String("log_level", cfg.LogLevel),
	)

	// --- Signal handling: cease new receives on SIGINT/SIGTERM, await
	// in-flight jobs via the consumer's own WaitGroup, then exit.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// --- 1. AWS clients (shared S3 + SQS singletons) ---
	awsOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	if cfg.AWSAccessKeyID != "" {
		// Explicit static credentials are only applied when configured —
		// leaving them unset lets the default chain fall through to an
		// IAM role, matching how a production deployment would run.
		awsOpts = append(awsOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOpts...)
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}
	s3Client := s3.NewFromConfig(awsCfg)
	sqsClient := sqs.NewFromConfig(awsCfg)

	// --- 2. MongoDB (audit log + notifications) ---
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoDatasourceURL))
	if err != nil {
		return fmt.Errorf("connect to mongo: %w", err)
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			logger.Warn("mongo disconnect error", zap.Error(err))
		}
	}()
	auditDB := mongoClient.Database(cfg.AuditLogMongoDB)
	notifyDB := mongoClient.Database(cfg.NotificationMongoDB)

	// --- 3. Redis (user-role access cache) ---
	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.PrimaryRedisHost, cfg.PrimaryRedisPort),
		Password: cfg.PrimaryRedisPassword,
		DB:       cfg.PrimaryRedisDB,
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close error", zap.Error(err))
		}
	}()

	// --- 4. Shared HTTP client ---
	httpCfg := httpclient.Config{
		ConnectTimeout:     httpclient.DefaultConnectTimeout,
		ReadTimeout:        httpclient.DefaultReadTimeout,
		InsecureSkipVerify: cfg.AnalyticsInsecureSkipTLS,
		Logger:             logger,
	}
	http := httpclient.New(httpCfg)

	// --- 5. Analytics clients, storage adapter, user-role cache ---
	analyticsBaseURL := cfg.HTTPProtocol + "://" + cfg.AnalyticsServiceHost
	insightsClient := analytics.NewInsightsClient(http, analyticsBaseURL, logger)
	usageLogsClient := analytics.NewUsageLogsClient(http, analyticsBaseURL, logger)

	storage := workbook.New(s3Client, cfg.AWSS3Bucket, logger)

	roleCache := cache.New(cache.Config{
		Redis:      redisClient,
		HTTP:       http,
		ClientBase: cfg.HTTPProtocol + "://" + cfg.ClientServiceHost,
		Logger:     logger,
	})

	// --- 6. Audit store, notifier, router ---
	auditStore := audit.NewMongoStore(auditDB, logger)
	notifyStore := notify.NewMongoStore(notifyDB, logger)
	notifier := notify.New(notifyStore, roleCache, logger)

	presignTTL := time.Duration(cfg.ExportFileExpiryHours) * time.Hour
	jobRouter := router.NewDefault(router.Builders{
		Insights:   insightsClient,
		UsageLogs:  usageLogsClient,
		Storage:    storage,
		Bucket:     cfg.AWSS3Bucket,
		PresignTTL: presignTTL,
	}, auditStore, notifier, logger)

	// --- 7. Queue consumer ---
	consumer := queue.New(sqsClient, jobRouter, queue.Config{
		QueueURL: cfg.SQSQueueURL,
	}, logger)

	logger.Info("export worker ready, entering receive loop")
	if err := consumer.Run(ctx); err != nil {
		return fmt.Errorf("consumer run: %w", err)
	}
	logger.Info("export worker shutting down")
	return nil
}
