//
// Copyright (C) 2024 Dmitry Kolesnikov
//
// This file may be modified and distributed under the terms
// of the MIT license.  See the LICENSE file for details.
// https://github.com/fogfish/suitestarter
//

package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/batch"
	"github.com/aws/aws-sdk-go-v2/service/batch/types"
	"github.com/fogfish/suitestarter/internal/manifest"
)

type JobQueue interface {
	SubmitJob(ctx context.Context, params *batch.SubmitJobInput, optFns ...func(*batch.Options)) (*batch.SubmitJobOutput, error)
}

// Batch submits the suite runner to AWS Batch. The container image is defined
// by job definition, the manifest contributes the job name, literal environment
// variables of the first container and labels as tags.
type Batch struct {
	api        JobQueue
	queue      string
	definition string
}

func NewBatch(api JobQueue, queue string, definition string) *Batch {
	return &Batch{
		api:        api,
		queue:      queue,
		definition: definition,
	}
}

func (s *Batch) Submit(ctx context.Context, val manifest.Value) (string, error) {
	job, err := Job(val)
	if err != nil {
		return "", err
	}

	containers := job.Spec.Template.Spec.Containers
	if len(containers) == 0 {
		return "", fmt.Errorf("job %s has no containers", job.Name)
	}

	env := make([]types.KeyValuePair, 0, len(containers[0].Env))
	for _, e := range containers[0].Env {
		// secrets are owned by job definition
		if e.ValueFrom != nil {
			continue
		}
		env = append(env, types.KeyValuePair{Name: aws.String(e.Name), Value: aws.String(e.Value)})
	}

	out, err := s.api.SubmitJob(ctx,
		&batch.SubmitJobInput{
			JobName:       aws.String(job.Name),
			JobDefinition: aws.String(s.definition),
			JobQueue:      aws.String(s.queue),
			ContainerOverrides: &types.ContainerOverrides{
				Environment: env,
			},
			Tags: job.Labels,
		},
	)
	if err != nil {
		return "", err
	}

	slog.Info("job scheduled", "job", job.Name, "id", aws.ToString(out.JobId))

	return aws.ToString(out.JobId), nil
}
