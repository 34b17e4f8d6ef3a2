package models

import "time"

// MaintenanceTask представляет задачу обслуживания аквариума:
// подмена воды, чистка фильтра, тесты воды и т.п.
type MaintenanceTask struct {
	ID        int
	TankID    int
	UserUID   string
	Title     string    // Название задачи
	TaskType  string    // water_change, filter_clean, water_test, feeding, other
	DueDate   time.Time // Срок выполнения
	IsDone    bool      // Признак выполнения
	CreatedAt time.Time
}

// DummyMaintenanceTask используется для приёма задачи из JSON-запроса.
// Дата приходит строкой в формате 02-01-2006.
type DummyMaintenanceTask struct {
	TankID   int    `json:"tank_id" validate:"required,gt=0"`
	Title    string `json:"title" validate:"required,max=200"`
	TaskType string `json:"task_type" validate:"required,oneof=water_change filter_clean water_test feeding other"`
	DueDate  string `json:"due_date" validate:"required"` // Срок в формате 02-01-2006
}

// ReminderInfo — сообщение о приближающейся задаче обслуживания.
// Публикуется планировщиком в RabbitMQ и потребляется отправителем писем.
type ReminderInfo struct {
	Email    string    `json:"email"`
	Username string    `json:"username"`
	TankName string    `json:"tank_name"`
	Title    string    `json:"title"`
	TaskType string    `json:"task_type"`
	DueDate  time.Time `json:"due_date"`
}
