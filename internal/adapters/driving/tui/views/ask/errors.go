package ask

import "errors"

// ErrNoAnswerService indicates that no answer service was provided.
var ErrNoAnswerService = errors.New("answer service is required")

// ErrNoRetrievalService indicates that no retrieval service was provided.
var ErrNoRetrievalService = errors.New("retrieval service is required")
