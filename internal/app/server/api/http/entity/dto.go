package entity

import (
	"fieldsync/internal/domain/entity"
)

type familyInput struct {
	Family string `path:"family" enum:"prospects,meetings,visits" doc:"Семейство сущностей"`
}

type viewInput struct {
	Family string `path:"family" enum:"prospects,meetings,visits" doc:"Семейство сущностей"`
	Days   int    `query:"days" default:"7" minimum:"1" maximum:"365" doc:"Горизонт выборки upcoming в сутках"`
}

type findInput struct {
	Family string `path:"family" enum:"prospects,meetings,visits" doc:"Семейство сущностей"`
	ID     int64  `path:"id" example:"1" doc:"ID сущности"`
}

type createInput struct {
	Family         string         `path:"family" enum:"prospects,meetings,visits" doc:"Семейство сущностей"`
	IdempotencyKey string         `header:"Idempotency-Key" doc:"Ключ идемпотентности; повтор с тем же ключом вернет исходный результат"`
	Body           map[string]any `doc:"Данные сущности"`
}

type updateInput struct {
	Family         string         `path:"family" enum:"prospects,meetings,visits" doc:"Семейство сущностей"`
	ID             int64          `path:"id" example:"1" doc:"ID сущности"`
	IdempotencyKey string         `header:"Idempotency-Key" doc:"Ключ идемпотентности"`
	Body           map[string]any `doc:"Данные сущности"`
}

type deleteInput struct {
	Family         string `path:"family" enum:"prospects,meetings,visits" doc:"Семейство сущностей"`
	ID             int64  `path:"id" example:"1" doc:"ID сущности"`
	IdempotencyKey string `header:"Idempotency-Key" doc:"Ключ идемпотентности"`
}

type listOutput struct {
	Body []entity.Entity
}

type output struct {
	Status int
	Body   entity.Entity
}
