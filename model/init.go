package model

import "semchat/platform"

func InstallDB() {
	db := platform.DB
	if err := db.AutoMigrate(
		&User{},
		&Conversation{},
		&Message{},
		&Embedding{}); err != nil {
		panic(err)
	}
}
