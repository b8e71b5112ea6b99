package controller

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"semchat/service"
)

// AuthController ...
type AuthController struct{}

var tokenService = new(service.TokenService)

// TokenValid ...
func (a AuthController) TokenValid(c *gin.Context) {
	tokenAuth, err := tokenService.ExtractTokenMetadata(c.Request)
	if err != nil {
		//Token either expired or not valid
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Please login first"})
		return
	}

	c.Set("UserId", tokenAuth.UserID)
	c.Set("UserName", tokenAuth.UserName)
}

// Refresh ...
func (a AuthController) Refresh(c *gin.Context) {
	accessToken := tokenService.ExtractToken(c.Request)

	//verify the token
	token, err := jwt.Parse(accessToken, func(token *jwt.Token) (interface{}, error) {
		//Make sure that the token method conform to "SigningMethodHMAC"
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(os.Getenv("ACCESS_SECRET")), nil
	})
	//if there is an error, the token must have expired
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid authorization, please login again"})
		return
	}
	//is token valid?
	if _, ok := token.Claims.(jwt.Claims); !ok && !token.Valid {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid authorization, please login again"})
		return
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid authorization, please login again"})
		return
	}

	userID, err := strconv.ParseUint(fmt.Sprintf("%.f", claims["user_id"]), 10, 64)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid authorization, please login again"})
		return
	}
	userName, _ := claims["user_name"].(string)

	td, err := tokenService.CreateToken(uint(userID), userName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to refresh token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   td.AccessToken,
		"expires": time.Unix(td.AtExpires, 0),
	})
}
