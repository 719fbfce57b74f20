package models

import "errors"

var ErrInvalidCategory = errors.New("category must be one of EXERCISE, SLEEP, FOOD, VALUE")

// Category groups habits and goals and picks the icon clients display.
type Category string

const (
	CategoryExercise Category = "EXERCISE"
	CategorySleep    Category = "SLEEP"
	CategoryFood     Category = "FOOD"
	CategoryValue    Category = "VALUE"
)

var Categories = []Category{CategoryExercise, CategorySleep, CategoryFood, CategoryValue}

var categoryIcons = map[Category]string{
	CategoryExercise: "🏃",
	CategorySleep:    "😴",
	CategoryFood:     "❤️",
	CategoryValue:    "💎",
}

func (c Category) Valid() bool {
	_, ok := categoryIcons[c]
	return ok
}

func (c Category) Icon() string {
	return categoryIcons[c]
}
