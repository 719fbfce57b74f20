// Package calendar provides time-zone free calendar days and weekday sets.
//
// Habits and goals are scheduled on days of the week and completed on calendar
// days, so neither needs a clock time. A Date is stored as its ISO string
// ("2006-01-02") which keeps range filters in SQL simple and portable between
// SQLite and Postgres.
package calendar
