// Copyright 2024 The Authors (see AUTHORS file)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// The executor function consumes review tasks from the queue and runs
// them against the model.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/abcxyz/pkg/logging"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/abcxyz/code-reviewer/pkg/bedrock"
	"github.com/abcxyz/code-reviewer/pkg/executor"
	"github.com/abcxyz/code-reviewer/pkg/notify"
	"github.com/abcxyz/code-reviewer/pkg/reconcile"
	"github.com/abcxyz/code-reviewer/pkg/report"
	"github.com/abcxyz/code-reviewer/pkg/storage"
)

func main() {
	ctx, done := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer done()

	logger := logging.NewFromEnv("")
	ctx = logging.WithLogger(ctx, logger)

	if err := realMain(ctx); err != nil {
		done()
		logger.ErrorContext(ctx, "process exited with error", "error", err)
		os.Exit(1)
	}
}

func realMain(ctx context.Context) error {
	cfg, err := executor.NewConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load aws config: %w", err)
	}

	ddb := dynamodb.NewFromConfig(awsCfg)
	requests := storage.NewRequests(ddb, cfg.RequestTable)
	tasks := storage.NewTasks(ddb, cfg.TaskTable)
	blobs := storage.NewBlobs(s3.NewFromConfig(awsCfg), cfg.BucketName)
	notifier := notify.NewSNSNotifier(sns.NewFromConfig(awsCfg), cfg.TopicARN)
	reporter := report.New(requests, tasks, blobs, notifier, cfg.AccessToken)
	checker := reconcile.New(requests, reporter, cfg.ReportTimeout)

	invoker, err := bedrock.NewClient(ctx, cfg.BedrockAccessKey, cfg.BedrockSecretKey, cfg.BedrockRegion, bedrock.Params{
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
	})
	if err != nil {
		return fmt.Errorf("failed to create bedrock client: %w", err)
	}

	exec := executor.New(requests, tasks, blobs, invoker, checker, executor.Options{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.BaseDelay,
		MaxDelay:   cfg.MaxDelay,
	})

	lambda.StartWithOptions(exec.HandleBatch, lambda.WithContext(ctx))
	return nil
}
