package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/communitycar/backend/internal/models"
)

// ContentHandler serves the votable entities: questions, answers and posts.
type ContentHandler struct {
	db *gorm.DB
}

func NewContentHandler(db *gorm.DB) *ContentHandler {
	return &ContentHandler{db: db}
}

// pagination reads limit/offset query params with sane bounds.
func pagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// GetQuestions returns questions, newest first
func (h *ContentHandler) GetQuestions(c *gin.Context) {
	limit, offset := pagination(c)

	var questions []models.Question
	if err := h.db.Preload("Author").Order("created_at desc").Limit(limit).Offset(offset).Find(&questions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch questions"})
		return
	}
	if questions == nil {
		questions = []models.Question{}
	}

	c.JSON(http.StatusOK, questions)
}

// GetQuestion returns a single question by ID
func (h *ContentHandler) GetQuestion(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid question id"})
		return
	}

	var question models.Question
	if err := h.db.Preload("Author").First(&question, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Question not found"})
		return
	}

	c.JSON(http.StatusOK, question)
}

// CreateQuestion creates a new question (PROTECTED)
func (h *ContentHandler) CreateQuestion(c *gin.Context) {
	var input struct {
		Title string `json:"title" binding:"required"`
		Body  string `json:"body"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Title is required"})
		return
	}

	userID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	question := models.Question{
		ID:       uuid.New(),
		Title:    input.Title,
		Body:     input.Body,
		AuthorID: userID,
	}

	if err := h.db.Create(&question).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create question"})
		return
	}

	h.db.Preload("Author").First(&question, "id = ?", question.ID)

	c.JSON(http.StatusCreated, question)
}

// GetAnswers returns all answers for a question, highest score first
func (h *ContentHandler) GetAnswers(c *gin.Context) {
	questionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid question id"})
		return
	}

	var answers []models.Answer
	if err := h.db.Preload("Author").Where("question_id = ?", questionID).Order("score desc, created_at asc").Find(&answers).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch answers"})
		return
	}
	if answers == nil {
		answers = []models.Answer{}
	}

	c.JSON(http.StatusOK, answers)
}

// CreateAnswer creates a new answer on a question (PROTECTED)
func (h *ContentHandler) CreateAnswer(c *gin.Context) {
	var input struct {
		Body string `json:"body" binding:"required"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	questionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid question id"})
		return
	}

	userID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var question models.Question
	if err := h.db.First(&question, "id = ?", questionID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Question not found"})
		return
	}

	answer := models.Answer{
		ID:         uuid.New(),
		QuestionID: questionID,
		Body:       input.Body,
		AuthorID:   userID,
	}

	if err := h.db.Create(&answer).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create answer"})
		return
	}

	h.db.Model(&models.Question{}).Where("id = ?", questionID).
		UpdateColumn("answers", gorm.Expr("answers + 1"))
	h.db.Preload("Author").First(&answer, "id = ?", answer.ID)

	c.JSON(http.StatusCreated, answer)
}

// GetPosts returns posts, newest first
func (h *ContentHandler) GetPosts(c *gin.Context) {
	limit, offset := pagination(c)

	var posts []models.Post
	if err := h.db.Preload("Author").Order("created_at desc").Limit(limit).Offset(offset).Find(&posts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch posts"})
		return
	}
	if posts == nil {
		posts = []models.Post{}
	}

	c.JSON(http.StatusOK, posts)
}

// GetPost returns a single post by ID
func (h *ContentHandler) GetPost(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid post id"})
		return
	}

	var post models.Post
	if err := h.db.Preload("Author").First(&post, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}

	c.JSON(http.StatusOK, post)
}

// CreatePost creates a new post (PROTECTED)
func (h *ContentHandler) CreatePost(c *gin.Context) {
	var input struct {
		Body  string `json:"body" binding:"required"`
		Image string `json:"image"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Body is required"})
		return
	}

	userID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	post := models.Post{
		ID:       uuid.New(),
		Body:     input.Body,
		Image:    input.Image,
		AuthorID: userID,
	}

	if err := h.db.Create(&post).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create post"})
		return
	}

	h.db.Preload("Author").First(&post, "id = ?", post.ID)

	c.JSON(http.StatusCreated, post)
}
