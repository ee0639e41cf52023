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

// The sweeper function is invoked on a schedule to report requests that
// are finished or have stalled past the report timeout.
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
	cfg, err := reconcile.NewConfig(ctx)
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

	lambda.StartWithOptions(func(ctx context.Context) error {
		return checker.Sweep(ctx)
	}, lambda.WithContext(ctx))
	return nil
}
