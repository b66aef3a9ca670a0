package domain

// Order заказ из внешнего магазина
// Ядро планирования видит только нужные для маршрутизации поля
type Order struct {
	ID           int64
	Status       string // Статус workflow заказа в магазине
	Region       string // Регион маршрутизации, производный от индекса
	Postcode     string
	MontageCount int // Единицы монтажа
	EtageCount   int // Единицы этажной доставки

	// Данные клиента для создания события во внешнем календаре и префилла
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Street        string
	City          string

	// Позиции заказа (названия товаров) для описания события
	Items []string
}

// RequiresService возвращает true, если по заказу есть работы на выезде
func (o *Order) RequiresService() bool {
	return o.MontageCount > 0 || o.EtageCount > 0
}

// PrimaryService возвращает основной вид услуги заказа
// Монтаж перекрывает этажную доставку: смешанный заказ планируется как монтаж
func (o *Order) PrimaryService() ServiceKind {
	if o.MontageCount > 0 {
		return ServiceMontage
	}
	return ServiceEtage
}

// HasRoutableRegion возвращает true, если регион пригоден для автоматического
// планирования (не пустой и не "по запросу")
func (o *Order) HasRoutableRegion() bool {
	return o.Region != "" && o.Region != RegionOnRequest
}
