package workflow

import (
	"errors"

	"github.com/unipublish/backend/internal/metadata"
)

var (
	// ErrNoInputProvided indicates generation was requested with neither text nor video.
	ErrNoInputProvided = errors.New("please enter text or upload a video")
	// ErrAnalysisFailed aborts a generate workflow before any platform call starts.
	ErrAnalysisFailed = metadata.ErrAnalysisFailed
	// ErrWorkflowInProgress indicates another generate or publish workflow is running.
	ErrWorkflowInProgress = errors.New("a workflow is already running for this session")
	// ErrNothingToPublish indicates a publish was requested with no Ready platform.
	ErrNothingToPublish = errors.New("no platforms are ready to publish")
	// ErrReservationUsed indicates a reservation that already ran or was aborted.
	ErrReservationUsed = errors.New("workflow reservation already used")
	// ErrPublishNotConfirmed indicates the user declined the publish confirmation.
	ErrPublishNotConfirmed = errors.New("publish not confirmed")
	// ErrVideoTooLarge indicates the uploaded video exceeds the configured limit.
	ErrVideoTooLarge = errors.New("video exceeds the configured size limit")
	// ErrEmptyVideo indicates an uploaded video without content.
	ErrEmptyVideo = errors.New("video file is empty")
)
