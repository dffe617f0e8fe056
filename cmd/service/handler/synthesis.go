package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	v1 "github.com/quka-ai/synthesis/app/logic/v1"
	"github.com/quka-ai/synthesis/app/response"
	"github.com/quka-ai/synthesis/pkg/errors"
	"github.com/quka-ai/synthesis/pkg/i18n"
	"github.com/quka-ai/synthesis/pkg/types"
	"github.com/quka-ai/synthesis/pkg/utils"
)

const (
	SYNTHESIS_MODE_QUEUED = "queued"
	SYNTHESIS_MODE_SYNC   = "sync"
)

// resolveMode 未指定时，开启队列则异步执行，否则同步执行
func (s *HttpSrv) resolveMode(c *gin.Context) (string, error) {
	mode := c.Query("mode")
	switch mode {
	case "":
		if s.Core.Queue() != nil {
			return SYNTHESIS_MODE_QUEUED, nil
		}
		return SYNTHESIS_MODE_SYNC, nil
	case SYNTHESIS_MODE_QUEUED, SYNTHESIS_MODE_SYNC:
		return mode, nil
	}
	return "", errors.New("HttpSrv.resolveMode", i18n.ERROR_INVALIDARGUMENT, fmt.Errorf("unknown mode %q", mode)).Code(http.StatusBadRequest)
}

// Synthesize 同步返回播客结果，或者入队后返回 job id
func (s *HttpSrv) Synthesize(c *gin.Context) {
	var req types.SynthesisRequest
	if err := utils.BindArgsWithGin(c, &req); err != nil {
		response.APIError(c, err)
		return
	}

	mode, err := s.resolveMode(c)
	if err != nil {
		response.APIError(c, err)
		return
	}

	logic := v1.NewSynthesisLogic(c, s.Core)
	if mode == SYNTHESIS_MODE_QUEUED {
		res, err := logic.Enqueue(&req)
		if err != nil {
			response.APIError(c, err)
			return
		}
		response.APISuccess(c, res)
		return
	}

	res, err := logic.Synthesize(&req)
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, res)
}

func (s *HttpSrv) GetSynthesisStatus(c *gin.Context) {
	job, err := v1.NewSynthesisLogic(c, s.Core).GetJob(c.Param("jobid"))
	if err != nil {
		response.APIError(c, err)
		return
	}
	response.APISuccess(c, job)
}

func (s *HttpSrv) ListSynthesisTemplates(c *gin.Context) {
	response.APISuccess(c, v1.NewSynthesisLogic(c, s.Core).Templates())
}
