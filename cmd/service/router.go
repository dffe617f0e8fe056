package service

import (
	"github.com/gin-gonic/gin"

	"github.com/quka-ai/synthesis/app/core"
	"github.com/quka-ai/synthesis/app/response"
	"github.com/quka-ai/synthesis/cmd/service/handler"
	"github.com/quka-ai/synthesis/cmd/service/middleware"
)

func serve(core *core.Core) error {
	httpSrv := &handler.HttpSrv{
		Core:   core,
		Engine: core.HttpEngine(),
	}
	setupHttpRouter(httpSrv)

	return core.HttpEngine().Run(core.Cfg().Addr)
}

func setupHttpRouter(s *handler.HttpSrv) {
	ipLimit := middleware.IPLimit(s.Core)

	s.Engine.Use(gin.Recovery())
	s.Engine.GET("/metrics", s.Core.Metrics().Manager().ExportHandler())

	s.Engine.Use(middleware.I18n(), response.NewResponse())
	s.Engine.Use(middleware.Cors)
	s.Engine.Use(middleware.Metrics(s.Core))
	apiV1 := s.Engine.Group("/api/v1")
	{
		synthesis := apiV1.Group("/synthesis")
		{
			synthesis.POST("", ipLimit("synthesis", core.WithLimit(30)), s.Synthesize)
			synthesis.GET("/status/:jobid", s.GetSynthesisStatus)
			synthesis.GET("/templates", s.ListSynthesisTemplates)
		}
	}
}
