package i18n

var ALLOW_LANG = map[string]bool{
	"en":    true,
	"zh-CN": true,
}

const DEFAULT_LANG = "en"

const (
	ERROR_INTERNAL            = "error.internal"
	ERROR_NOT_FOUND           = "error.notfound"
	ERROR_INVALIDARGUMENT     = "error.invalidargument"
	ERROR_TOO_MANY_REQUESTS   = "error.tooManyRequests"
	ERROR_UNSUPPORTED_FEATURE = "error.unsupported.feature"
	ERROR_NOT_CONFIGURED      = "error.not_configured"

	ERROR_UNSUPPORTED_OUTPUT_TYPE   = "error.synthesis.unsupported_output_type"
	ERROR_UNSUPPORTED_FORMAT        = "error.synthesis.unsupported_format"
	ERROR_INVALID_PODCAST_OPTIONS   = "error.synthesis.invalid_options"
	ERROR_MISSING_JOB_ID            = "error.synthesis.missing_job_id"
	ERROR_EMPTY_INPUT               = "error.synthesis.empty_input"
	ERROR_UNKNOWN_TEMPLATE          = "error.synthesis.unknown_template"
	ERROR_CONTENT_EXTRACTION        = "error.synthesis.content_extraction"
	ERROR_UNSUPPORTED_CONTENT_TYPE  = "error.synthesis.unsupported_content_type"
	ERROR_GENERATION_FAILED         = "error.synthesis.generation_failed"
	ERROR_EMPTY_SCRIPT              = "error.synthesis.empty_script"
	ERROR_SPEECH_SYNTHESIS_FAILED   = "error.synthesis.speech_failed"
	ERROR_AUDIO_MERGE_FAILED        = "error.synthesis.audio_merge_failed"
	ERROR_AUDIO_UPLOAD_FAILED       = "error.synthesis.audio_upload_failed"
	ERROR_TRANSCRIPT_UPLOAD_FAILED  = "error.synthesis.transcript_upload_failed"
	ERROR_JOB_STORE_NOT_CONFIGURED  = "error.synthesis.job_store_not_configured"
	ERROR_QUEUE_NOT_CONFIGURED      = "error.synthesis.queue_not_configured"
)
