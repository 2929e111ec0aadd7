package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/taskmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskmarket-backend/internal/logger"
	"github.com/ignatzorin/taskmarket-backend/internal/models"
)

// SeedOptions объём демо-данных.
type SeedOptions struct {
	Posters     int
	Doers       int
	Tasks       int
	BidsPerTask int
	// AcceptEvery каждое N-е задание получает принятый отклик. 0 отключает.
	AcceptEvery int
	Password    string
}

// SeedResult что удалось создать.
type SeedResult struct {
	Users    int `json:"users"`
	Tasks    int `json:"tasks"`
	Bids     int `json:"bids"`
	Accepted int `json:"accepted"`
}

// SeedService заполняет базу демо-данными через обычные сервисы,
// поэтому все проверки и события срабатывают как при работе через API.
type SeedService struct {
	auth  *AuthService
	tasks *AssignmentService
	bids  *BidService
	rnd   *rand.Rand
}

// NewSeedService создаёт генератор. seed фиксирует случайность.
func NewSeedService(auth *AuthService, tasks *AssignmentService, bids *BidService, seed int64) *SeedService {
	return &SeedService{
		auth:  auth,
		tasks: tasks,
		bids:  bids,
		rnd:   rand.New(rand.NewSource(seed)),
	}
}

var (
	seedFirstNames = []string{
		"Александр", "Дмитрий", "Максим", "Сергей", "Андрей", "Алексей", "Артём", "Илья",
		"Анна", "Мария", "Елена", "Ольга", "Татьяна", "Наталья", "Ирина", "Дарья",
	}
	seedLastNames = []string{
		"Иванов", "Петров", "Смирнов", "Козлов", "Соколов", "Попов", "Лебедев", "Новиков",
		"Морозов", "Волков", "Васильев", "Зайцев", "Павлов", "Семёнов", "Фёдоров", "Белов",
	}
	seedTasks = []struct {
		title    string
		category string
	}{
		{"Лендинг для кофейни", "web"},
		{"Telegram бот для записи клиентов", "bots"},
		{"Логотип для студии йоги", "design"},
		{"Перевод инструкции на английский", "translation"},
		{"Парсер цен конкурентов", "scripts"},
		{"Мобильное приложение для учёта расходов", "mobile"},
		{"SEO аудит интернет-магазина", "marketing"},
		{"Доработка формы оплаты", "web"},
		{"Монтаж ролика для YouTube", "video"},
		{"Настройка CI для проекта на Go", "devops"},
	}
	seedPitches = []string{
		"Сделаю аккуратно и в срок, есть похожие работы.",
		"Готов начать сегодня, вопросы обсудим в чате.",
		"Опыт более пяти лет, покажу примеры.",
		"Могу предложить пару вариантов на выбор.",
	}
)

// Seed создаёт пользователей, задания и отклики.
func (s *SeedService) Seed(ctx context.Context, opts SeedOptions) (*SeedResult, error) {
	if opts.Posters < 1 || opts.Doers < 1 {
		return nil, fmt.Errorf("seed service: нужен хотя бы один заказчик и один исполнитель")
	}
	// Метка запуска, чтобы повторный запуск не упирался в занятые email.
	run, err := gonanoid.Generate("abcdefghijklmnopqrstuvwxyz0123456789", 6)
	if err != nil {
		return nil, fmt.Errorf("seed service: %w", err)
	}

	result := &SeedResult{}
	posters, err := s.createUsers(ctx, run, valueobject.RolePoster, opts.Posters, opts.Password)
	if err != nil {
		return nil, err
	}
	doers, err := s.createUsers(ctx, run, valueobject.RoleDoer, opts.Doers, opts.Password)
	if err != nil {
		return nil, err
	}
	result.Users = len(posters) + len(doers)

	for i := 0; i < opts.Tasks; i++ {
		poster := posters[i%len(posters)]
		task, err := s.createTask(ctx, poster)
		if err != nil {
			return nil, err
		}
		result.Tasks++

		var bids []*models.Bid
		for _, j := range s.rnd.Perm(len(doers))[:min(opts.BidsPerTask, len(doers))] {
			amount := float64(int(task.Budget*(0.7+0.4*s.rnd.Float64())/100) * 100)
			if amount <= 0 {
				amount = 100
			}
			bid, err := s.bids.Submit(ctx, doers[j], task.ID, seedPitches[s.rnd.Intn(len(seedPitches))], amount)
			if err != nil {
				return nil, fmt.Errorf("seed service: отклик: %w", err)
			}
			bids = append(bids, bid)
			result.Bids++
		}

		if opts.AcceptEvery > 0 && len(bids) > 0 && i%opts.AcceptEvery == 0 {
			if _, err := s.bids.Accept(ctx, poster, bids[0].ID); err != nil {
				return nil, fmt.Errorf("seed service: принятие отклика: %w", err)
			}
			result.Accepted++
		}
	}

	logger.Log.WithFields(logrus.Fields{
		"run":      run,
		"users":    result.Users,
		"tasks":    result.Tasks,
		"bids":     result.Bids,
		"accepted": result.Accepted,
	}).Info("seed service: демо-данные созданы")
	return result, nil
}

func (s *SeedService) createUsers(ctx context.Context, run string, role valueobject.Role, count int, password string) ([]Actor, error) {
	actors := make([]Actor, 0, count)
	for i := 0; i < count; i++ {
		name := seedFirstNames[s.rnd.Intn(len(seedFirstNames))] + " " + seedLastNames[s.rnd.Intn(len(seedLastNames))]
		email := fmt.Sprintf("%s-%d-%s@example.com", strings.ToLower(string(role)), i+1, run)
		user, err := s.auth.createUser(ctx, email, password, name, role)
		if err != nil {
			return nil, fmt.Errorf("seed service: пользователь %s: %w", email, err)
		}
		actors = append(actors, Actor{ID: user.ID, Role: user.Role})
	}
	return actors, nil
}

func (s *SeedService) createTask(ctx context.Context, poster Actor) (*models.Assignment, error) {
	tpl := seedTasks[s.rnd.Intn(len(seedTasks))]
	task, err := s.tasks.Create(ctx, poster, AssignmentInput{
		Title:       tpl.title,
		Description: tpl.title + ". Подробности обсудим после выбора исполнителя.",
		Category:    tpl.category,
		Budget:      float64((5 + s.rnd.Intn(96)) * 1000),
	})
	if err != nil {
		return nil, fmt.Errorf("seed service: задание: %w", err)
	}
	return task, nil
}
