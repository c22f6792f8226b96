package models

import (
	"time"
)

// ProcessStepTextColumns lists the free-text columns of a process step, in table order.
var ProcessStepTextColumns = []string{
	"short_description",
	"overview",
	"main_activities",
	"inputs_text",
	"outputs_text",
	"pain_points",
	"targets_text",
	"actors_text",
	"systems_text",
	"kpis_text",
	"llm_comment_1",
	"llm_comment_2",
	"llm_comment_3",
	"llm_comment_4",
	"llm_comment_5",
}

// LLMCommentSlots is the number of llm_comment_N columns on a process step.
const LLMCommentSlots = 5

// ProcessStep belongs to exactly one Area and owns its UseCases.
// BIID is the unique business identifier used as natural key on import.
type ProcessStep struct {
	ID               int64     `json:"id"`
	BIID             string    `json:"bi_id"`
	Name             string    `json:"name"`
	AreaID           int64     `json:"area_id"`
	ShortDescription *string   `json:"short_description"`
	Overview         *string   `json:"overview"`
	MainActivities   *string   `json:"main_activities"`
	InputsText       *string   `json:"inputs_text"`
	OutputsText      *string   `json:"outputs_text"`
	PainPoints       *string   `json:"pain_points"`
	TargetsText      *string   `json:"targets_text"`
	ActorsText       *string   `json:"actors_text"`
	SystemsText      *string   `json:"systems_text"`
	KPIsText         *string   `json:"kpis_text"`
	LLMComment1      *string   `json:"llm_comment_1"`
	LLMComment2      *string   `json:"llm_comment_2"`
	LLMComment3      *string   `json:"llm_comment_3"`
	LLMComment4      *string   `json:"llm_comment_4"`
	LLMComment5      *string   `json:"llm_comment_5"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	// Joined for display.
	AreaName     string `json:"area_name,omitempty"`
	UseCaseCount int    `json:"use_case_count"`
}

// TextField returns the address of the named text column, or nil for an unknown column.
func (s *ProcessStep) TextField(column string) **string {
	switch column {
	case "short_description":
		return &s.ShortDescription
	case "overview":
		return &s.Overview
	case "main_activities":
		return &s.MainActivities
	case "inputs_text":
		return &s.InputsText
	case "outputs_text":
		return &s.OutputsText
	case "pain_points":
		return &s.PainPoints
	case "targets_text":
		return &s.TargetsText
	case "actors_text":
		return &s.ActorsText
	case "systems_text":
		return &s.SystemsText
	case "kpis_text":
		return &s.KPIsText
	case "llm_comment_1":
		return &s.LLMComment1
	case "llm_comment_2":
		return &s.LLMComment2
	case "llm_comment_3":
		return &s.LLMComment3
	case "llm_comment_4":
		return &s.LLMComment4
	case "llm_comment_5":
		return &s.LLMComment5
	}
	return nil
}

// LLMCommentColumn returns the column name for a 1-based comment slot.
func LLMCommentColumn(slot int) (string, bool) {
	if slot < 1 || slot > LLMCommentSlots {
		return "", false
	}
	return ProcessStepTextColumns[len(ProcessStepTextColumns)-LLMCommentSlots+slot-1], true
}
