// Package query compiles declarative aggregation fragments into executable
// pipelines and merges partial fragments supplied by call sites with a
// repository's base fragment.
package query

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Lookup describes a left outer join against another collection.
type Lookup struct {
	From         string `bson:"from"`
	LocalField   string `bson:"localField"`
	ForeignField string `bson:"foreignField"`
	As           string `bson:"as"`
}

// Aggregation is a declarative, partial description of a pipeline.
// Absent fields emit no stage.
type Aggregation struct {
	// UnwindFirst paths are unwound before the lookups run.
	UnwindFirst []string
	Lookup      []Lookup
	Match       bson.M
	Unwind      []string
	Group       bson.M
	Sort        bson.D
	Skip        int64
	Limit       int64
	// Project emits one stage per element, preserving order.
	Project []bson.M
}

// Compile turns a fragment into an ordered pipeline. The stage order is
// fixed: unwindFirst, lookup, match, unwind, group, sort, skip, limit,
// project. Skip and limit are emitted only when includeSkipAndLimit is
// set, so a count variant of the same logical query compiles without
// pagination. Unwind stages preserve documents whose array field is null
// or absent.
func Compile(a Aggregation, includeSkipAndLimit bool) mongo.Pipeline {
	pipeline := mongo.Pipeline{}

	for _, path := range a.UnwindFirst {
		pipeline = append(pipeline, unwindStage(path))
	}

	for _, lookup := range a.Lookup {
		pipeline = append(pipeline, bson.D{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: lookup.From},
			{Key: "localField", Value: lookup.LocalField},
			{Key: "foreignField", Value: lookup.ForeignField},
			{Key: "as", Value: lookup.As},
		}}})
	}

	if len(a.Match) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: a.Match}})
	}

	for _, path := range a.Unwind {
		pipeline = append(pipeline, unwindStage(path))
	}

	if len(a.Group) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$group", Value: a.Group}})
	}

	if len(a.Sort) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$sort", Value: a.Sort}})
	}

	if includeSkipAndLimit {
		if a.Skip > 0 {
			pipeline = append(pipeline, bson.D{{Key: "$skip", Value: a.Skip}})
		}
		if a.Limit > 0 {
			pipeline = append(pipeline, bson.D{{Key: "$limit", Value: a.Limit}})
		}
	}

	for _, project := range a.Project {
		pipeline = append(pipeline, bson.D{{Key: "$project", Value: project}})
	}

	return pipeline
}

func unwindStage(path string) bson.D {
	return bson.D{{Key: "$unwind", Value: bson.D{
		{Key: "path", Value: path},
		{Key: "preserveNullAndEmptyArrays", Value: true},
	}}}
}
