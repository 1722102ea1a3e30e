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
	"encoding/json"
	"fmt"

	"github.com/fogfish/suitestarter/internal/manifest"
	batchv1 "k8s.io/api/batch/v1"
)

// Submitter creates the job described by manifest, returns identity of the job
type Submitter interface {
	Submit(ctx context.Context, job manifest.Value) (string, error)
}

// Job decodes manifest into batch/v1 Job
func Job(val manifest.Value) (*batchv1.Job, error) {
	b, err := json.Marshal(manifest.Interface(val))
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}

	var job batchv1.Job
	if err := json.Unmarshal(b, &job); err != nil {
		return nil, fmt.Errorf("decode job manifest: %w", err)
	}

	if job.Kind != "" && job.Kind != "Job" {
		return nil, fmt.Errorf("unexpected manifest kind %q", job.Kind)
	}

	if job.Name == "" {
		return nil, fmt.Errorf("job name is not defined")
	}

	return &job, nil
}
