package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/huangang/teamdesk/internal/services"
	"github.com/huangang/teamdesk/pkg/response"
)

type TeamHandler struct {
	teamService *services.TeamService
}

func NewTeamHandler(teamService *services.TeamService) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

func (h *TeamHandler) Create(c *gin.Context) {
	var req services.CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	team, err := h.teamService.Create(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Team created successfully", team)
}

func (h *TeamHandler) List(c *gin.Context) {
	teams, err := h.teamService.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "", teams)
}

func (h *TeamHandler) Get(c *gin.Context) {
	team, err := h.teamService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "", team)
}

func (h *TeamHandler) Update(c *gin.Context) {
	var req services.UpdateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	team, err := h.teamService.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "Team updated successfully", team)
}

func (h *TeamHandler) Delete(c *gin.Context) {
	if err := h.teamService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "Team deleted successfully", nil)
}

func (h *TeamHandler) ListByManager(c *gin.Context) {
	teams, err := h.teamService.ListByManager(c.Request.Context(), c.Param("managerId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "", teams)
}

func (h *TeamHandler) ListByMember(c *gin.Context) {
	teams, err := h.teamService.ListByMember(c.Request.Context(), c.Param("memberId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "", teams)
}

func (h *TeamHandler) AddMember(c *gin.Context) {
	team, err := h.teamService.AddMember(c.Request.Context(), c.Param("id"), c.Param("userId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "Member added successfully", team)
}

func (h *TeamHandler) RemoveMember(c *gin.Context) {
	team, err := h.teamService.RemoveMember(c.Request.Context(), c.Param("id"), c.Param("userId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, "Member removed successfully", team)
}
